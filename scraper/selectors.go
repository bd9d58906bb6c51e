package scraper

// Selectors holds every ordered fallback list used against the vendor site.
// Lists are tried first to last; the first one that matches wins.
type Selectors struct {
	Listing ListingSelectors
	Detail  DetailSelectors
	Login   LoginSelectors
	// CookieBanner is clicked after navigation when banner dismissal is on.
	CookieBanner []string
}

type ListingSelectors struct {
	ProductTiles []string
	NextButton   []string
}

type DetailSelectors struct {
	Title          []string
	SKU            []string
	Description    []string
	Price          []string
	GalleryLinks   []string
	GalleryImages  []string
	Specifications []string
	SpecRows       []string
	SpecCells      []string
	InStock        []string
	StockText      []string
	Color          []string
	Collection     []string
}

type LoginSelectors struct {
	EmailInput    []string
	PasswordInput []string
	SubmitButton  []string
	AccountHeader []string
}

// DefaultSelectors returns the selector set for the WooCommerce storefront.
func DefaultSelectors() *Selectors {
	return &Selectors{
		Listing: ListingSelectors{
			ProductTiles: []string{
				`li.product a[href*="/product/"]`,
				`.products .product a[href*="/product/"]`,
				`a[href*="/product/"]`,
			},
			NextButton: []string{
				`a.next`,
				`a.pagination-next`,
				`[aria-label="Next"]`,
				`.next-page`,
			},
		},
		Detail: DetailSelectors{
			Title: []string{
				`h1.product_title`,
				`h1.product-title`,
				`h1`,
			},
			SKU: []string{
				`span.sku`,
				`.product-sku`,
				`p.sku-label`,
			},
			Description: []string{
				`.product-description`,
				`.product_description`,
				`.woocommerce-product-details__short-description`,
				`[class*="description"]`,
			},
			Price: []string{
				// A sale shows the old figure in <del> and the live one in <ins>.
				`p.price ins .amount`,
				`p.price ins`,
				`p.price`,
				`span.price`,
				`.woocommerce-Price-amount`,
				`.woocommerce-price-amount`,
				`[itemprop="price"]`,
			},
			GalleryLinks: []string{
				`.woocommerce-product-gallery a`,
				`.product-gallery a`,
				`.product-images a[href*=".jpg"], .product-images a[href*=".png"]`,
				`a[href*=".jpg"], a[href*=".png"]`,
			},
			GalleryImages: []string{
				`.woocommerce-product-gallery img`,
				`.product-gallery img`,
				`.product-images img`,
			},
			Specifications: []string{
				`.woocommerce-product-attributes`,
				`.product-specs`,
				`table.specifications`,
				`[class*="attributes"]`,
			},
			SpecRows: []string{
				`tr`,
				`.attribute-row`,
				`.spec-row`,
			},
			SpecCells: []string{
				`td, th`,
				`.label, .value`,
				`dt, dd`,
			},
			InStock: []string{
				`.stock.in-stock`,
				`p.in-stock`,
				`[class*="in-stock"]`,
			},
			StockText: []string{
				`.stock`,
				`.inventory`,
				`[class*="stock"]`,
			},
			Color:      []string{`.color`},
			Collection: []string{`.collection`},
		},
		Login: LoginSelectors{
			EmailInput: []string{
				`input[name="log"]`,
				`input[name="username"]`,
				`input[type="email"]`,
				`input[placeholder*="Email"]`,
			},
			PasswordInput: []string{
				`input[name="pwd"]`,
				`input[name="password"]`,
				`input[type="password"]`,
				`input[placeholder*="Password"]`,
			},
			SubmitButton: []string{
				`button[type="submit"]`,
				`input[type="submit"]`,
				`button.login-button`,
			},
			AccountHeader: []string{
				`.account-header`,
				`.user-menu`,
				`[class*="my-account"]`,
				`a[href*="/my-account/"]`,
				`.woocommerce-MyAccount-navigation`,
			},
		},
		CookieBanner: []string{
			`#onetrust-accept-btn-handler`,
			`button[aria-label*="Accept"]`,
			`.cookie-accept`,
			`#cookie-accept`,
		},
	}
}
