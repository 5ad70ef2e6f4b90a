package router

// Route name constants
// All navigable views are referenced by name to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteLogin = "LoginView"

	// Authenticated Routes
	RouteDashboard = "DashboardView"
	RouteProducts  = "ProductList"
	RouteVendors   = "VendorList"
	RouteInvoices  = "InvoiceList"

	// Admin Routes
	RouteStatistics = "StatsView"

	// Fallback
	RouteNotFound = "NotFound"
)

// Route path constants
const (
	PathAuth       = "/auth"
	PathLogin      = "login"
	PathRoot       = "/"
	PathDashboard  = "dashboard"
	PathProducts   = "products"
	PathVendors    = "vendors"
	PathInvoices   = "invoices"
	PathStatistics = "statistics"
	PathCatchAll   = "*"
)

// DefaultRoutes returns the application's route table.
func DefaultRoutes() []Route {
	return []Route{
		{
			Path:     PathAuth,
			Children: []Route{{Path: PathLogin, Name: RouteLogin}},
		},
		{
			Path: PathRoot,
			Meta: Meta{RequiresAuth: true},
			Children: []Route{
				{Path: "", Redirect: "/" + PathDashboard},
				{Path: PathDashboard, Name: RouteDashboard},
				{Path: PathProducts, Name: RouteProducts},
				{Path: PathVendors, Name: RouteVendors},
				{Path: PathInvoices, Name: RouteInvoices},
				{Path: PathStatistics, Name: RouteStatistics, Meta: Meta{RequiresAdmin: true}},
			},
		},
		{Path: PathCatchAll, Name: RouteNotFound},
	}
}
