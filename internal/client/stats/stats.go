// Package stats derives dashboard figures from the resource stores. It
// never talks to the backend itself.
package stats

import (
	"sync"

	"github.com/dmitrijs2005/autoservice/internal/client/models"
	"github.com/dmitrijs2005/autoservice/internal/client/resources"
)

// ErrorMessage is reported when any input store failed; the individual
// messages stay on the stores.
const ErrorMessage = "Some dashboard data could not be loaded."

// Source is the read side of a resources.Store.
type Source[T models.Entity] interface {
	Items() []T
	Loading() bool
	Err() string
	Version() uint64
}

// Inputs is one read of every store the dashboard depends on.
type Inputs struct {
	Customers      Collection[models.Customer]
	Vehicles       Collection[models.Vehicle]
	Services       Collection[models.Service]
	ServiceRecords Collection[models.ServiceRecord]
	SpareParts     Collection[models.SparePart]

	LowStockThreshold float64
}

type Collection[T models.Entity] struct {
	Items   []T
	Loading bool
	Err     string
}

func Read[T models.Entity](s Source[T]) Collection[T] {
	return Collection[T]{Items: s.Items(), Loading: s.Loading(), Err: s.Err()}
}

type Snapshot struct {
	TotalCustomers      int
	TotalVehicles       int
	TotalServices       int
	TotalServiceRecords int
	CompletedRecords    int
	PendingRecords      int
	Revenue             float64
	TotalSpareParts     int
	LowStockParts       []models.SparePart
	InventoryValue      float64

	Loading bool
	Error   string
}

// Compute is pure: the same Inputs always give the same Snapshot.
func Compute(in Inputs) Snapshot {
	s := Snapshot{
		TotalCustomers:      len(in.Customers.Items),
		TotalVehicles:       len(in.Vehicles.Items),
		TotalServices:       len(in.Services.Items),
		TotalServiceRecords: len(in.ServiceRecords.Items),
		TotalSpareParts:     len(in.SpareParts.Items),
		LowStockParts:       resources.LowStock(in.SpareParts.Items, in.LowStockThreshold),
		InventoryValue:      resources.StockValue(in.SpareParts.Items),
	}

	for _, r := range in.ServiceRecords.Items {
		switch r.Status {
		case models.StatusCompleted:
			s.CompletedRecords++
			s.Revenue += r.Cost.Float64()
		case models.StatusPending, "":
			s.PendingRecords++
		}
	}

	s.Loading = in.Customers.Loading || in.Vehicles.Loading || in.Services.Loading ||
		in.ServiceRecords.Loading || in.SpareParts.Loading
	if in.Customers.Err != "" || in.Vehicles.Err != "" || in.Services.Err != "" ||
		in.ServiceRecords.Err != "" || in.SpareParts.Err != "" {
		s.Error = ErrorMessage
	}
	return s
}

// Aggregator caches the Snapshot of a fixed set of stores and recomputes
// it only when one of them changed.
type Aggregator struct {
	customers      Source[models.Customer]
	vehicles       Source[models.Vehicle]
	services       Source[models.Service]
	serviceRecords Source[models.ServiceRecord]
	spareParts     Source[models.SparePart]
	threshold      float64

	mu       sync.Mutex
	versions [5]uint64
	cached   *Snapshot
}

func NewAggregator(
	customers Source[models.Customer],
	vehicles Source[models.Vehicle],
	services Source[models.Service],
	serviceRecords Source[models.ServiceRecord],
	spareParts Source[models.SparePart],
	lowStockThreshold float64,
) *Aggregator {
	return &Aggregator{
		customers:      customers,
		vehicles:       vehicles,
		services:       services,
		serviceRecords: serviceRecords,
		spareParts:     spareParts,
		threshold:      lowStockThreshold,
	}
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	versions := [5]uint64{
		a.customers.Version(),
		a.vehicles.Version(),
		a.services.Version(),
		a.serviceRecords.Version(),
		a.spareParts.Version(),
	}
	if a.cached != nil && versions == a.versions {
		return *a.cached
	}

	snap := Compute(Inputs{
		Customers:         Read(a.customers),
		Vehicles:          Read(a.vehicles),
		Services:          Read(a.services),
		ServiceRecords:    Read(a.serviceRecords),
		SpareParts:        Read(a.spareParts),
		LowStockThreshold: a.threshold,
	})
	a.cached = &snap
	a.versions = versions
	return snap
}
