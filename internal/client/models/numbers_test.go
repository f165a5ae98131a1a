package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForeignKey_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    ForeignKey
		wantErr bool
	}{
		{"number", `3`, 3, false},
		{"string", `"3"`, 3, false},
		{"padded string", `" 42 "`, 42, false},
		{"float string", `"3.0"`, 3, false},
		{"null", `null`, 0, false},
		{"empty string", `""`, 0, false},
		{"fraction", `"3.5"`, 0, true},
		{"text", `"abc"`, 0, true},
		{"bool", `true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var k ForeignKey
			err := json.Unmarshal([]byte(tt.in), &k)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, k)
		})
	}
}

func TestForeignKey_MarshalIsNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		CategoryID ForeignKey `json:"categoryId"`
		SupplierID ForeignKey `json:"supplierId"`
	}{CategoryID: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"categoryId":3,"supplierId":null}`, string(b))
}

func TestNumber_RoundTripFromString(t *testing.T) {
	var n Number
	require.NoError(t, json.Unmarshal([]byte(`"12.50"`), &n))
	assert.Equal(t, Number(12.5), n)

	b, err := json.Marshal(n)
	require.NoError(t, err)
	assert.Equal(t, "12.5", string(b))

	require.Error(t, json.Unmarshal([]byte(`"twelve"`), &n))
}

func TestParseForeignKey(t *testing.T) {
	k, err := ParseForeignKey("7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), k.Int64())

	_, err = ParseForeignKey("seven")
	require.ErrorIs(t, err, ErrNotNumeric)
}

func TestFromForm_SparePartCoercesKeys(t *testing.T) {
	part, err := FromForm[SparePart](map[string]string{
		"name":       "Oil filter",
		"categoryId": "3",
		"supplierId": "",
		"quantity":   "10",
		"unitPrice":  "4.75",
	})
	require.NoError(t, err)

	assert.Equal(t, ForeignKey(3), part.CategoryID)
	assert.Equal(t, ForeignKey(0), part.SupplierID)
	assert.Equal(t, Number(10), part.Quantity)

	b, err := json.Marshal(part)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(b, &body))
	assert.Equal(t, float64(3), body["categoryId"])
	assert.Equal(t, 4.75, body["unitPrice"])
}

func TestFromForm_BadNumber(t *testing.T) {
	_, err := FromForm[ServiceRecord](map[string]string{"vehicleId": "x1"})
	require.ErrorIs(t, err, ErrNotNumeric)
}

func TestPatch_KeepsBlankFields(t *testing.T) {
	current := Vehicle{ID: 4, CustomerID: 2, PlateNumber: "AB-1", Make: "Ford", Year: 2015}

	got, err := Patch(current, map[string]string{
		"plateNumber": "CD-2",
		"customerId":  "5",
		"make":        "  ",
		"year":        "2018",
	})
	require.NoError(t, err)
	assert.Equal(t, Vehicle{ID: 4, CustomerID: 5, PlateNumber: "CD-2", Make: "Ford", Year: 2018}, got)

	_, err = Patch(current, map[string]string{"year": "old"})
	require.ErrorIs(t, err, ErrNotNumeric)
}
