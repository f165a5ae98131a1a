package resources

import "github.com/dmitrijs2005/autoservice/internal/client/models"

// Index maps items by id. The backend never embeds related entities, so
// views that show names next to foreign keys build an index once per
// render and resolve each row with a map lookup.
func Index[T models.Entity](items []T) map[int64]T {
	out := make(map[int64]T, len(items))
	for _, it := range items {
		out[it.GetID()] = it
	}
	return out
}

// ServiceRecordView is a service record with its vehicle and service
// resolved for display.
type ServiceRecordView struct {
	models.ServiceRecord

	PlateNumber  string
	VehicleModel string
	ServiceName  string
}

// Unknown is shown for references whose target is not loaded.
const Unknown = "Unknown"

func JoinServiceRecords(records []models.ServiceRecord, vehicles map[int64]models.Vehicle, services map[int64]models.Service) []ServiceRecordView {
	out := make([]ServiceRecordView, 0, len(records))
	for _, r := range records {
		v := ServiceRecordView{ServiceRecord: r, PlateNumber: Unknown, VehicleModel: Unknown, ServiceName: Unknown}
		if veh, ok := vehicles[r.VehicleID.Int64()]; ok {
			v.PlateNumber = veh.PlateNumber
			v.VehicleModel = joinNonEmpty(veh.Make, veh.Model)
		}
		if svc, ok := services[r.ServiceID.Int64()]; ok {
			v.ServiceName = svc.Name
		}
		out = append(out, v)
	}
	return out
}

// SparePartView is a spare part with its category and supplier names.
type SparePartView struct {
	models.SparePart

	CategoryName string
	SupplierName string
	Low          bool
}

func JoinSpareParts(parts []models.SparePart, categories map[int64]models.SparePartCategory, suppliers map[int64]models.Supplier, threshold float64) []SparePartView {
	out := make([]SparePartView, 0, len(parts))
	for _, p := range parts {
		v := SparePartView{SparePart: p, Low: IsLowStock(p, threshold)}
		if c, ok := categories[p.CategoryID.Int64()]; ok {
			v.CategoryName = c.Name
		}
		if s, ok := suppliers[p.SupplierID.Int64()]; ok {
			v.SupplierName = s.Name
		}
		out = append(out, v)
	}
	return out
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		if b == "" {
			return Unknown
		}
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
