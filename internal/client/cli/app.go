package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/autoservice/internal/client/api"
	"github.com/dmitrijs2005/autoservice/internal/client/config"
	"github.com/dmitrijs2005/autoservice/internal/client/models"
	"github.com/dmitrijs2005/autoservice/internal/client/profile"
	"github.com/dmitrijs2005/autoservice/internal/client/resources"
	"github.com/dmitrijs2005/autoservice/internal/client/session"
	"github.com/dmitrijs2005/autoservice/internal/client/stats"
	"github.com/dmitrijs2005/autoservice/internal/client/storage"
	"github.com/dmitrijs2005/autoservice/internal/logging"
)

type Screen string

const (
	ScreenLogin     Screen = "login"
	ScreenDashboard Screen = "dashboard"
)

type App struct {
	config   *config.Config
	log      logging.Logger
	repo     storage.Repository
	client   *api.Client
	sessions *session.Store
	profiles *profile.Service

	customers      *resources.Store[models.Customer]
	vehicles       *resources.Store[models.Vehicle]
	services       *resources.Store[models.Service]
	serviceRecords *resources.Store[models.ServiceRecord]
	spareParts     *resources.Store[models.SparePart]
	categories     *resources.Store[models.SparePartCategory]
	suppliers      *resources.Store[models.Supplier]
	incomes        *resources.Store[models.InventoryIncome]
	usages         *resources.Store[models.InventoryUsage]
	collections    map[string]collection
	stats          *stats.Aggregator

	// mu guards screen and navigation output; 401s from parallel
	// fetches navigate from several goroutines.
	mu     sync.Mutex
	screen Screen
	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens local storage, restores any saved session and builds the
// stores. in and out are the console streams.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	repo, err := storage.Open(ctx, c.Storage)
	if err != nil {
		log.Error(ctx, "error initializing storage", "error", err)
		return nil, err
	}

	client := api.New(c.API, api.WithLogger(log))

	a := &App{
		config: c,
		log:    log,
		repo:   repo,
		client: client,
		screen: ScreenLogin,
		reader: bufio.NewReader(in),
		out:    out,
	}

	a.sessions = session.NewStore(client, repo, a, log)
	client.SetTokenSource(a.sessions)
	client.OnUnauthorized(a.sessions.HandleUnauthorized)

	a.profiles = profile.NewService(client, repo, a.sessions, log)
	a.sessions.OnIdentityChange(a.profiles.OnIdentityChange(c.Profile.PurgeOnLogout))

	a.customers = resources.NewCustomers(client, log)
	a.vehicles = resources.NewVehicles(client, log)
	a.services = resources.NewServices(client, log)
	a.serviceRecords = resources.NewServiceRecords(client, log)
	a.spareParts = resources.NewSpareParts(client, log)
	a.categories = resources.NewCategories(client, log)
	a.suppliers = resources.NewSuppliers(client, log)
	a.incomes = resources.NewInventoryIncomes(client, log)
	a.usages = resources.NewInventoryUsages(client, log)
	a.collections = a.bindings()
	a.stats = stats.NewAggregator(a.customers, a.vehicles, a.services, a.serviceRecords, a.spareParts,
		c.Stats.LowStockThreshold)

	if a.sessions.Restore(ctx) {
		a.setScreen(ScreenDashboard)
	}
	if err := a.profiles.MigrateLegacy(ctx); err != nil {
		log.Warn(ctx, "legacy profile migration failed", "error", err)
	}

	return a, nil
}

// Run starts the REPL and releases resources when it returns.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Autoservice console (type 'help' for commands)")
	if ident, ok := a.sessions.Identity(); ok {
		fmt.Fprintf(a.out, "Signed in as %s\n", ident.DisplayName())
	}
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) Close() {
	for _, c := range a.collections {
		c.close()
	}
	if err := a.repo.Close(); err != nil {
		a.log.Error(context.Background(), "error closing storage", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.sessions.IsLoggedIn()
}

func (a *App) getStatus() string {
	if ident, ok := a.sessions.Identity(); ok {
		return fmt.Sprintf("(%s)", ident.Email)
	}
	return ""
}

// Screen reports which part of the console the user is on.
func (a *App) Screen() Screen {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screen
}

func (a *App) setScreen(s Screen) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.screen = s
}

// ToLogin implements session.Navigator.
func (a *App) ToLogin() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.screen == ScreenDashboard {
		fmt.Fprintln(a.out, "Signed out. Type 'login' to sign in again.")
	}
	a.screen = ScreenLogin
}

// ToDashboard implements session.Navigator.
func (a *App) ToDashboard() {
	ident, ok := a.sessions.Identity()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.screen = ScreenDashboard
	if ok {
		fmt.Fprintf(a.out, "Welcome, %s!\n", ident.DisplayName())
	}
}
