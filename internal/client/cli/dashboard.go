package cli

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/autoservice/internal/client/resources"
	"github.com/dmitrijs2005/autoservice/internal/client/stats"
)

// maxParallelFetches bounds how many collections are loaded at once.
const maxParallelFetches = 4

// fetchAll loads the stores independently and waits for all of them.
// Failures stay on the stores.
func fetchAll(ctx context.Context, fetches ...func(context.Context)) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)
	for _, f := range fetches {
		g.Go(func() error {
			f(ctx)
			return nil
		})
	}
	_ = g.Wait()
}

// Stats prints the dashboard figures.
func (a *App) Stats(ctx context.Context) error {
	fetchAll(ctx,
		a.customers.FetchAll,
		a.vehicles.FetchAll,
		a.services.FetchAll,
		a.serviceRecords.FetchAll,
		a.spareParts.FetchAll,
	)
	printStats(a, a.stats.Snapshot())
	return nil
}

func printStats(a *App, s stats.Snapshot) {
	if s.Error != "" {
		fmt.Fprintf(a.out, "Warning: %s\n", s.Error)
	}
	printTable(a.out, []string{"METRIC", "VALUE"}, [][]string{
		{"Customers", fmt.Sprint(s.TotalCustomers)},
		{"Vehicles", fmt.Sprint(s.TotalVehicles)},
		{"Services", fmt.Sprint(s.TotalServices)},
		{"Service records", fmt.Sprint(s.TotalServiceRecords)},
		{"  completed", fmt.Sprint(s.CompletedRecords)},
		{"  pending", fmt.Sprint(s.PendingRecords)},
		{"Revenue", money(s.Revenue)},
		{"Spare parts", fmt.Sprint(s.TotalSpareParts)},
		{"Inventory value", money(s.InventoryValue)},
		{"Low stock", fmt.Sprint(len(s.LowStockParts))},
	})
	for _, p := range s.LowStockParts {
		fmt.Fprintf(a.out, "  reorder: %s (%s left)\n", p.Name, count(p.Quantity))
	}
}

// Records prints service records with vehicle and service names resolved.
func (a *App) Records(ctx context.Context) error {
	fetchAll(ctx, a.serviceRecords.FetchAll, a.vehicles.FetchAll, a.services.FetchAll)
	if err := storeErr(a.serviceRecords.Err()); err != nil {
		return a.report(err)
	}

	views := resources.JoinServiceRecords(
		a.serviceRecords.Items(),
		resources.Index(a.vehicles.Items()),
		resources.Index(a.services.Items()),
	)
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{
			idText(v.ID), v.ServiceDate, v.PlateNumber, v.VehicleModel, v.ServiceName,
			money(v.Cost.Float64()), string(v.Status),
		})
	}
	printTable(a.out, []string{"ID", "DATE", "PLATE", "VEHICLE", "SERVICE", "COST", "STATUS"}, rows)
	return nil
}

// Parts prints spare parts with category and supplier names and flags
// the ones that need reordering.
func (a *App) Parts(ctx context.Context) error {
	fetchAll(ctx, a.spareParts.FetchAll, a.categories.FetchAll, a.suppliers.FetchAll)
	if err := storeErr(a.spareParts.Err()); err != nil {
		return a.report(err)
	}

	views := resources.JoinSpareParts(
		a.spareParts.Items(),
		resources.Index(a.categories.Items()),
		resources.Index(a.suppliers.Items()),
		a.config.Stats.LowStockThreshold,
	)
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		low := ""
		if v.Low {
			low = "LOW"
		}
		rows = append(rows, []string{
			idText(v.ID), v.Name, v.CategoryName, v.SupplierName, count(v.Quantity), money(v.UnitPrice.Float64()), low,
		})
	}
	printTable(a.out, []string{"ID", "NAME", "CATEGORY", "SUPPLIER", "QTY", "PRICE", ""}, rows)
	return nil
}
