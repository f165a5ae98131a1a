package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/autoservice/internal/client/models"
	"github.com/dmitrijs2005/autoservice/internal/client/resources"
)

var errUnknownCollection = errors.New("unknown collection")

// collection is the console's type-erased view of a resources.Store.
type collection interface {
	fetch(ctx context.Context) error
	search(ctx context.Context, q string) error
	print(w io.Writer)
	show(ctx context.Context, w io.Writer, id int64) error
	create(ctx context.Context, values map[string]string) (int64, error)
	update(ctx context.Context, id int64, values map[string]string) error
	remove(ctx context.Context, id int64) error
	form() []field
	close()
}

type binding[T models.Entity] struct {
	store  *resources.Store[T]
	fields []field
	header []string
	row    func(T) []string
}

func (b *binding[T]) fetch(ctx context.Context) error {
	b.store.FetchAll(ctx)
	return storeErr(b.store.Err())
}

func (b *binding[T]) search(ctx context.Context, q string) error {
	b.store.Search(ctx, q)
	return storeErr(b.store.Err())
}

func (b *binding[T]) print(w io.Writer) {
	items := b.store.Items()
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, b.row(it))
	}
	printTable(w, b.header, rows)
}

func (b *binding[T]) show(ctx context.Context, w io.Writer, id int64) error {
	item, err := b.store.Get(ctx, id)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func (b *binding[T]) create(ctx context.Context, values map[string]string) (int64, error) {
	item, err := models.FromForm[T](values)
	if err != nil {
		return 0, err
	}
	created, err := b.store.Create(ctx, item)
	if err != nil {
		return 0, err
	}
	return created.GetID(), nil
}

func (b *binding[T]) update(ctx context.Context, id int64, values map[string]string) error {
	current, err := b.store.Get(ctx, id)
	if err != nil {
		return err
	}
	item, err := models.Patch(current, values)
	if err != nil {
		return err
	}
	_, err = b.store.Update(ctx, id, item)
	return err
}

func (b *binding[T]) remove(ctx context.Context, id int64) error {
	return b.store.Delete(ctx, id)
}

func (b *binding[T]) form() []field { return b.fields }

func (b *binding[T]) close() { b.store.Close() }

func storeErr(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}

func (a *App) bindings() map[string]collection {
	return map[string]collection{
		"customers": &binding[models.Customer]{
			store: a.customers,
			fields: []field{
				{key: "name", prompt: "Name"},
				{key: "email", prompt: "Email"},
				{key: "phone", prompt: "Phone"},
				{key: "address", prompt: "Address"},
			},
			header: []string{"ID", "NAME", "EMAIL", "PHONE"},
			row: func(c models.Customer) []string {
				return []string{idText(c.ID), c.Name, c.Email, c.Phone}
			},
		},
		"vehicles": &binding[models.Vehicle]{
			store: a.vehicles,
			fields: []field{
				{key: "customerId", prompt: "Customer ID"},
				{key: "plateNumber", prompt: "Plate number"},
				{key: "make", prompt: "Make"},
				{key: "model", prompt: "Model"},
				{key: "year", prompt: "Year"},
				{key: "vin", prompt: "VIN"},
			},
			header: []string{"ID", "PLATE", "MAKE", "MODEL", "YEAR", "CUSTOMER"},
			row: func(v models.Vehicle) []string {
				return []string{idText(v.ID), v.PlateNumber, v.Make, v.Model, plain(v.Year), ref(v.CustomerID)}
			},
		},
		"services": &binding[models.Service]{
			store: a.services,
			fields: []field{
				{key: "name", prompt: "Name"},
				{key: "description", prompt: "Description"},
				{key: "price", prompt: "Price"},
				{key: "durationMinutes", prompt: "Duration (minutes)"},
			},
			header: []string{"ID", "NAME", "PRICE", "MINUTES"},
			row: func(s models.Service) []string {
				return []string{idText(s.ID), s.Name, money(s.Price.Float64()), count(s.DurationMinutes)}
			},
		},
		"records": &binding[models.ServiceRecord]{
			store: a.serviceRecords,
			fields: []field{
				{key: "vehicleId", prompt: "Vehicle ID"},
				{key: "serviceId", prompt: "Service ID"},
				{key: "serviceDate", prompt: "Service date (YYYY-MM-DD)"},
				{key: "cost", prompt: "Cost"},
				{key: "mileage", prompt: "Mileage"},
				{key: "status", prompt: "Status (pending, in_progress, completed)"},
				{key: "notes", prompt: "Notes", multiline: true},
			},
			header: []string{"ID", "DATE", "VEHICLE", "SERVICE", "COST", "STATUS"},
			row: func(r models.ServiceRecord) []string {
				return []string{idText(r.ID), r.ServiceDate, ref(r.VehicleID), ref(r.ServiceID), money(r.Cost.Float64()), string(r.Status)}
			},
		},
		"parts": &binding[models.SparePart]{
			store: a.spareParts,
			fields: []field{
				{key: "name", prompt: "Name"},
				{key: "partNumber", prompt: "Part number"},
				{key: "categoryId", prompt: "Category ID"},
				{key: "supplierId", prompt: "Supplier ID"},
				{key: "quantity", prompt: "Quantity"},
				{key: "minStock", prompt: "Minimum stock"},
				{key: "unitPrice", prompt: "Unit price"},
			},
			header: []string{"ID", "NAME", "PART NO", "QTY", "PRICE"},
			row: func(p models.SparePart) []string {
				return []string{idText(p.ID), p.Name, p.PartNumber, count(p.Quantity), money(p.UnitPrice.Float64())}
			},
		},
		"categories": &binding[models.SparePartCategory]{
			store: a.categories,
			fields: []field{
				{key: "name", prompt: "Name"},
				{key: "description", prompt: "Description"},
			},
			header: []string{"ID", "NAME", "DESCRIPTION"},
			row: func(c models.SparePartCategory) []string {
				return []string{idText(c.ID), c.Name, c.Description}
			},
		},
		"suppliers": &binding[models.Supplier]{
			store: a.suppliers,
			fields: []field{
				{key: "name", prompt: "Name"},
				{key: "contactName", prompt: "Contact name"},
				{key: "email", prompt: "Email"},
				{key: "phone", prompt: "Phone"},
				{key: "address", prompt: "Address"},
			},
			header: []string{"ID", "NAME", "CONTACT", "EMAIL", "PHONE"},
			row: func(s models.Supplier) []string {
				return []string{idText(s.ID), s.Name, s.ContactName, s.Email, s.Phone}
			},
		},
		"incomes": &binding[models.InventoryIncome]{
			store: a.incomes,
			fields: []field{
				{key: "sparePartId", prompt: "Spare part ID"},
				{key: "supplierId", prompt: "Supplier ID"},
				{key: "quantity", prompt: "Quantity"},
				{key: "unitPrice", prompt: "Unit price"},
				{key: "receivedAt", prompt: "Received at (YYYY-MM-DD)"},
			},
			header: []string{"ID", "PART", "SUPPLIER", "QTY", "PRICE", "RECEIVED"},
			row: func(i models.InventoryIncome) []string {
				return []string{idText(i.ID), ref(i.SparePartID), ref(i.SupplierID), count(i.Quantity), money(i.UnitPrice.Float64()), i.ReceivedAt}
			},
		},
		"usages": &binding[models.InventoryUsage]{
			store: a.usages,
			fields: []field{
				{key: "sparePartId", prompt: "Spare part ID"},
				{key: "serviceRecordId", prompt: "Service record ID"},
				{key: "quantity", prompt: "Quantity"},
				{key: "usedAt", prompt: "Used at (YYYY-MM-DD)"},
			},
			header: []string{"ID", "PART", "RECORD", "QTY", "USED"},
			row: func(u models.InventoryUsage) []string {
				return []string{idText(u.ID), ref(u.SparePartID), ref(u.ServiceRecordID), count(u.Quantity), u.UsedAt}
			},
		},
	}
}

func (a *App) collection(name string) (collection, error) {
	c, ok := a.collections[strings.ToLower(name)]
	if !ok {
		fmt.Fprintf(a.out, "Unknown collection %q. Known: %s\n", name, strings.Join(a.collectionNames(), ", "))
		return nil, fmt.Errorf("%w: %s", errUnknownCollection, name)
	}
	return c, nil
}

func (a *App) collectionNames() []string {
	names := make([]string, 0, len(a.collections))
	for n := range a.collections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// report prints err the way the stores word it and passes it on.
func (a *App) report(err error) error {
	if err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", resources.Humanize(err))
	}
	return err
}

func (a *App) List(ctx context.Context, name string) error {
	c, err := a.collection(name)
	if err != nil {
		return err
	}
	if err := c.fetch(ctx); err != nil {
		return a.report(err)
	}
	c.print(a.out)
	return nil
}

func (a *App) Search(ctx context.Context, name, q string) error {
	c, err := a.collection(name)
	if err != nil {
		return err
	}
	if err := c.search(ctx, q); err != nil {
		return a.report(err)
	}
	c.print(a.out)
	return nil
}

func (a *App) Show(ctx context.Context, name string, id int64) error {
	c, err := a.collection(name)
	if err != nil {
		return err
	}
	return a.report(c.show(ctx, a.out, id))
}

func (a *App) Add(ctx context.Context, name string) error {
	c, err := a.collection(name)
	if err != nil {
		return err
	}
	values, err := GetFields(a.reader, c.form(), a.out)
	if err != nil {
		return err
	}
	newID, err := c.create(ctx, values)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Created %s #%d\n", name, newID)
	return nil
}

// Edit prompts for every field; blank answers keep the current value.
func (a *App) Edit(ctx context.Context, name string, id int64) error {
	c, err := a.collection(name)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Leave a field blank to keep its current value.")
	values, err := GetFields(a.reader, c.form(), a.out)
	if err != nil {
		return err
	}
	if err := c.update(ctx, id, values); err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Updated %s #%d\n", name, id)
	return nil
}

func (a *App) Delete(ctx context.Context, name string, id int64) error {
	c, err := a.collection(name)
	if err != nil {
		return err
	}
	if err := c.remove(ctx, id); err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Deleted %s #%d\n", name, id)
	return nil
}

func printTable(w io.Writer, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no records)")
	}
}

func idText(v int64) string { return strconv.FormatInt(v, 10) }
