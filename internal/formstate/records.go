package formstate

// Tab names, used as the key prefix in the session store.
const (
	TabClient  = "client"
	TabSeller  = "seller"
	TabProject = "project"
)

// Tabs lists the tab names in display order.
var Tabs = []string{TabClient, TabSeller, TabProject}

// Record is a per-tab form record. Fields are declared with
// `form:"name[,required][,ai]"` tags; ai marks fields filled by analysis.
type Record interface {
	Tab() string
}

// Client is the prospective buyer.
type Client struct {
	EnterpriseName     string            `form:"enterprise_name,required" json:"enterprise_name"`
	Industry           string            `form:"industry,required" json:"industry"`
	Website            string            `form:"website" json:"website"`
	Location           string            `form:"location" json:"location"`
	ContactName        string            `form:"contact_name" json:"contact_name"`
	ContactEmail       string            `form:"contact_email" json:"contact_email"`
	Description        string            `form:"description,ai" json:"description"`
	LinkedInURL        string            `form:"linkedin_url,ai" json:"linkedin_url"`
	DiscoveredURLs     []string          `form:"discovered_urls,ai" json:"discovered_urls"`
	ScrapedPages       map[string]string `form:"scraped_pages,ai" json:"scraped_pages"`
	Documents          []string          `form:"documents" json:"documents"`
	PainPoints         map[string]string `form:"pain_points,ai" json:"pain_points"`
	SelectedPainPoints Set               `form:"selected_pain_points" json:"selected_pain_points"`
	Notes              string            `form:"notes" json:"notes"`
}

func (Client) Tab() string { return TabClient }

// Seller is the company writing the proposal.
type Seller struct {
	EnterpriseName   string            `form:"enterprise_name,required" json:"enterprise_name"`
	Industry         string            `form:"industry" json:"industry"`
	Website          string            `form:"website,required" json:"website"`
	ContactName      string            `form:"contact_name" json:"contact_name"`
	ContactEmail     string            `form:"contact_email" json:"contact_email"`
	Description      string            `form:"description,ai" json:"description"`
	LinkedInURL      string            `form:"linkedin_url,ai" json:"linkedin_url"`
	Documents        []string          `form:"documents" json:"documents"`
	Services         map[string]string `form:"services,ai" json:"services"`
	SelectedServices Set               `form:"selected_services" json:"selected_services"`
	Differentiators  []string          `form:"differentiators" json:"differentiators"`
}

func (Seller) Tab() string { return TabSeller }

// ProjectSpecification is the deal being proposed. The recommendation maps
// hold the JSON objects the recommender returned, keyed by their fields.
type ProjectSpecification struct {
	Title       string                    `form:"title,required" json:"title"`
	Description string                    `form:"description,required" json:"description"`
	StartDate   string                    `form:"start_date" json:"start_date"`
	Budget      string                    `form:"budget" json:"budget"`
	Currency    string                    `form:"currency" json:"currency"`
	Theme       string                    `form:"theme" json:"theme"`
	Scope       map[string]any            `form:"scope,ai" json:"scope"`
	Timeline    map[string]any            `form:"timeline,ai" json:"timeline"`
	Effort      map[string]any            `form:"effort,ai" json:"effort"`
	Team        map[string]any            `form:"team,ai" json:"team"`
	Pricing     map[string]any            `form:"pricing,ai" json:"pricing"`
	Sections    map[string]map[string]any `form:"sections" json:"sections"`
	Outcomes    map[string]string         `form:"outcomes" json:"outcomes"`
}

func (ProjectSpecification) Tab() string { return TabProject }

func (p *ProjectSpecification) ApplyDefaults() {
	p.Currency = "USD"
	p.Theme = "corporate"
}
