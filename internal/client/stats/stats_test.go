package stats

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/autoservice/internal/client/models"
)

type fakeSource[T models.Entity] struct {
	items   []T
	loading bool
	err     string
	version uint64
	reads   int
}

func (f *fakeSource[T]) Items() []T      { f.reads++; return f.items }
func (f *fakeSource[T]) Loading() bool   { return f.loading }
func (f *fakeSource[T]) Err() string     { return f.err }
func (f *fakeSource[T]) Version() uint64 { return f.version }

func TestCompute(t *testing.T) {
	in := Inputs{
		Customers: Collection[models.Customer]{Items: []models.Customer{{ID: 1}, {ID: 2}}},
		Vehicles:  Collection[models.Vehicle]{Items: []models.Vehicle{{ID: 1}}},
		Services:  Collection[models.Service]{Items: []models.Service{{ID: 1}, {ID: 2}, {ID: 3}}},
		ServiceRecords: Collection[models.ServiceRecord]{Items: []models.ServiceRecord{
			{ID: 1, Status: models.StatusCompleted, Cost: 100},
			{ID: 2, Status: models.StatusCompleted, Cost: 50.5},
			{ID: 3, Status: models.StatusPending, Cost: 70},
			{ID: 4, Status: models.StatusInProgress, Cost: 10},
			{ID: 5, Cost: 1},
		}},
		SpareParts: Collection[models.SparePart]{Items: []models.SparePart{
			{ID: 1, Quantity: 2, UnitPrice: 10},
			{ID: 2, Quantity: 20, UnitPrice: 1.5},
		}},
		LowStockThreshold: 5,
	}

	want := Snapshot{
		TotalCustomers:      2,
		TotalVehicles:       1,
		TotalServices:       3,
		TotalServiceRecords: 5,
		CompletedRecords:    2,
		PendingRecords:      2,
		Revenue:             150.5,
		TotalSpareParts:     2,
		LowStockParts:       []models.SparePart{{ID: 1, Quantity: 2, UnitPrice: 10}},
		InventoryValue:      50,
	}
	if diff := cmp.Diff(want, Compute(in)); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_LoadingAndError(t *testing.T) {
	s := Compute(Inputs{Vehicles: Collection[models.Vehicle]{Loading: true}})
	assert.True(t, s.Loading)
	assert.Empty(t, s.Error)

	s = Compute(Inputs{
		Services:   Collection[models.Service]{Err: "injected failure"},
		SpareParts: Collection[models.SparePart]{Err: "other"},
	})
	assert.False(t, s.Loading)
	assert.Equal(t, ErrorMessage, s.Error)
	assert.Zero(t, s.TotalServices)
}

func TestAggregator_RecomputesOnVersionChange(t *testing.T) {
	customers := &fakeSource[models.Customer]{items: []models.Customer{{ID: 1}}}
	vehicles := &fakeSource[models.Vehicle]{}
	services := &fakeSource[models.Service]{}
	records := &fakeSource[models.ServiceRecord]{}
	parts := &fakeSource[models.SparePart]{}

	a := NewAggregator(customers, vehicles, services, records, parts, 5)

	assert.Equal(t, 1, a.Snapshot().TotalCustomers)
	assert.Equal(t, 1, a.Snapshot().TotalCustomers)
	assert.Equal(t, 1, customers.reads, "unchanged versions reuse the cache")

	customers.items = append(customers.items, models.Customer{ID: 2})
	assert.Equal(t, 1, a.Snapshot().TotalCustomers, "stale until the version moves")

	customers.version++
	assert.Equal(t, 2, a.Snapshot().TotalCustomers)
	assert.Equal(t, 2, customers.reads)
}
