package cli

import (
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/dmitrijs2005/autoservice/internal/client/models"
)

func money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// count renders a whole quantity with thousands separators and keeps
// fractional quantities (litres of oil) as they are.
func count(n models.Number) string {
	f := n.Float64()
	if f == float64(int64(f)) {
		return humanize.Comma(int64(f))
	}
	return humanize.Commaf(f)
}

func ref(k models.ForeignKey) string {
	if k == 0 {
		return "-"
	}
	return strconv.FormatInt(k.Int64(), 10)
}

func plain(n models.Number) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatFloat(n.Float64(), 'f', -1, 64)
}
