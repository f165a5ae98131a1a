package resources

import (
	"github.com/dmitrijs2005/autoservice/internal/client/api"
	"github.com/dmitrijs2005/autoservice/internal/client/models"
	"github.com/dmitrijs2005/autoservice/internal/logging"
)

// Endpoint locates a collection on the backend.
type Endpoint struct {
	Base api.Base
	Path string
	// Name is the singular noun used in log lines and messages.
	Name string
}

var (
	CustomersEndpoint        = Endpoint{Base: api.BaseV1, Path: "/customers", Name: "customer"}
	VehiclesEndpoint         = Endpoint{Base: api.BaseV1, Path: "/vehicles", Name: "vehicle"}
	ServicesEndpoint         = Endpoint{Base: api.BaseV1, Path: "/services", Name: "service"}
	ServiceRecordsEndpoint   = Endpoint{Base: api.BaseV1, Path: "/service-records", Name: "service record"}
	SparePartsEndpoint       = Endpoint{Base: api.BaseV1, Path: "/spare-parts", Name: "spare part"}
	CategoriesEndpoint       = Endpoint{Base: api.BaseV1, Path: "/spare-part-categories", Name: "category"}
	SuppliersEndpoint        = Endpoint{Base: api.BaseV1, Path: "/suppliers", Name: "supplier"}
	InventoryIncomesEndpoint = Endpoint{Base: api.BaseV1, Path: "/inventory-incomes", Name: "inventory income"}
	InventoryUsagesEndpoint  = Endpoint{Base: api.BaseV1, Path: "/inventory-usages", Name: "inventory usage"}
)

func NewCustomers(c Doer, log logging.Logger) *Store[models.Customer] {
	return New[models.Customer](c, CustomersEndpoint, log)
}

func NewVehicles(c Doer, log logging.Logger) *Store[models.Vehicle] {
	return New[models.Vehicle](c, VehiclesEndpoint, log)
}

func NewServices(c Doer, log logging.Logger) *Store[models.Service] {
	return New[models.Service](c, ServicesEndpoint, log)
}

func NewServiceRecords(c Doer, log logging.Logger) *Store[models.ServiceRecord] {
	return New[models.ServiceRecord](c, ServiceRecordsEndpoint, log)
}

func NewSpareParts(c Doer, log logging.Logger) *Store[models.SparePart] {
	return New[models.SparePart](c, SparePartsEndpoint, log)
}

func NewCategories(c Doer, log logging.Logger) *Store[models.SparePartCategory] {
	return New[models.SparePartCategory](c, CategoriesEndpoint, log)
}

func NewSuppliers(c Doer, log logging.Logger) *Store[models.Supplier] {
	return New[models.Supplier](c, SuppliersEndpoint, log)
}

func NewInventoryIncomes(c Doer, log logging.Logger) *Store[models.InventoryIncome] {
	return New[models.InventoryIncome](c, InventoryIncomesEndpoint, log)
}

func NewInventoryUsages(c Doer, log logging.Logger) *Store[models.InventoryUsage] {
	return New[models.InventoryUsage](c, InventoryUsagesEndpoint, log)
}
