package models

import "time"

// Entity is implemented by every resource the backend stores.
type Entity interface {
	GetID() int64
}

type Customer struct {
	ID        int64      `json:"id,omitempty"`
	Name      string     `json:"name" validate:"required"`
	Email     string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string     `json:"phone,omitempty"`
	Address   string     `json:"address,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func (c Customer) GetID() int64 { return c.ID }

type Vehicle struct {
	ID          int64      `json:"id,omitempty"`
	CustomerID  ForeignKey `json:"customerId" validate:"required"`
	PlateNumber string     `json:"plateNumber" validate:"required"`
	Make        string     `json:"make,omitempty"`
	Model       string     `json:"model,omitempty"`
	Year        Number     `json:"year,omitempty" validate:"gte=0"`
	VIN         string     `json:"vin,omitempty"`
}

func (v Vehicle) GetID() int64 { return v.ID }

type Service struct {
	ID              int64  `json:"id,omitempty"`
	Name            string `json:"name" validate:"required"`
	Description     string `json:"description,omitempty"`
	Price           Number `json:"price" validate:"gte=0"`
	DurationMinutes Number `json:"durationMinutes,omitempty" validate:"gte=0"`
}

func (s Service) GetID() int64 { return s.ID }

type RecordStatus string

const (
	StatusPending    RecordStatus = "pending"
	StatusInProgress RecordStatus = "in_progress"
	StatusCompleted  RecordStatus = "completed"
)

type ServiceRecord struct {
	ID          int64        `json:"id,omitempty"`
	VehicleID   ForeignKey   `json:"vehicleId" validate:"required"`
	ServiceID   ForeignKey   `json:"serviceId" validate:"required"`
	ServiceDate string       `json:"serviceDate,omitempty"`
	Cost        Number       `json:"cost" validate:"gte=0"`
	Mileage     Number       `json:"mileage,omitempty" validate:"gte=0"`
	Status      RecordStatus `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed"`
	Notes       string       `json:"notes,omitempty"`
}

func (r ServiceRecord) GetID() int64 { return r.ID }

type SparePart struct {
	ID         int64      `json:"id,omitempty"`
	Name       string     `json:"name" validate:"required"`
	PartNumber string     `json:"partNumber,omitempty"`
	CategoryID ForeignKey `json:"categoryId"`
	SupplierID ForeignKey `json:"supplierId"`
	Quantity   Number     `json:"quantity" validate:"gte=0"`
	MinStock   Number     `json:"minStock,omitempty" validate:"gte=0"`
	UnitPrice  Number     `json:"unitPrice" validate:"gte=0"`
}

func (p SparePart) GetID() int64 { return p.ID }

type SparePartCategory struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

func (c SparePartCategory) GetID() int64 { return c.ID }

type Supplier struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name" validate:"required"`
	ContactName string `json:"contactName,omitempty"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
}

func (s Supplier) GetID() int64 { return s.ID }

// InventoryIncome records spare parts received from a supplier.
type InventoryIncome struct {
	ID          int64      `json:"id,omitempty"`
	SparePartID ForeignKey `json:"sparePartId" validate:"required"`
	SupplierID  ForeignKey `json:"supplierId"`
	Quantity    Number     `json:"quantity" validate:"gt=0"`
	UnitPrice   Number     `json:"unitPrice" validate:"gte=0"`
	ReceivedAt  string     `json:"receivedAt,omitempty"`
}

func (i InventoryIncome) GetID() int64 { return i.ID }

// InventoryUsage records spare parts consumed by a service record.
type InventoryUsage struct {
	ID              int64      `json:"id,omitempty"`
	SparePartID     ForeignKey `json:"sparePartId" validate:"required"`
	ServiceRecordID ForeignKey `json:"serviceRecordId"`
	Quantity        Number     `json:"quantity" validate:"gt=0"`
	UsedAt          string     `json:"usedAt,omitempty"`
}

func (u InventoryUsage) GetID() int64 { return u.ID }
