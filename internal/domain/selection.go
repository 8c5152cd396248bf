package domain

// Variant is the purchasable product tier.
type Variant string

const (
	VariantDigitalBasic   Variant = "digitalBasic"
	VariantDigitalHighRes Variant = "digitalHighRes"
	VariantDigitalPDF     Variant = "digitalPdf"
	VariantDigitalBundle  Variant = "digitalBundle"
	VariantPhysicalPrint  Variant = "physicalPrint"
	VariantPhysicalKit    Variant = "physicalKit"
)

// IsPhysical reports whether the variant ships to the customer.
func (v Variant) IsPhysical() bool {
	return v == VariantPhysicalPrint || v == VariantPhysicalKit
}

// Size is a print size or, for kits, the dice gauge.
type Size string

const (
	SizeSmall Size = "small"
	SizeLarge Size = "large"
	Kit10mm   Size = "10mm"
	Kit8mm    Size = "8mm"
	SizeNone  Size = ""
)

type AspectRatio string

const (
	AspectSquare    AspectRatio = "square"
	AspectPortrait  AspectRatio = "portrait"
	AspectLandscape AspectRatio = "landscape"
)

// AssetRefs points at the generated files for a project.
type AssetRefs struct {
	LowResURL  string `json:"lowResUrl,omitempty"`
	HighResURL string `json:"highResUrl,omitempty"`
	PDFURL     string `json:"pdfUrl,omitempty"`
}

// Empty reports whether no asset reference is set.
func (a AssetRefs) Empty() bool {
	return a.LowResURL == "" && a.HighResURL == "" && a.PDFURL == ""
}

// Primary returns the most complete asset: PDF, then high-res, then low-res.
func (a AssetRefs) Primary() string {
	switch {
	case a.PDFURL != "":
		return a.PDFURL
	case a.HighResURL != "":
		return a.HighResURL
	default:
		return a.LowResURL
	}
}

// Selection is what the customer chose on the create page.
type Selection struct {
	Variant       Variant     `json:"variantKind"`
	Size          Size        `json:"sizeOrKit,omitempty"`
	Quantity      int64       `json:"quantity"`
	AspectRatio   AspectRatio `json:"aspectRatio,omitempty"`
	StyleID       int         `json:"styleId"`
	Assets        AssetRefs   `json:"assetRefs"`
	ProjectName   string      `json:"projectName"`
	CustomerEmail string      `json:"customerEmail"`
}

// ShippingAddress is collected by the payment provider at completion time.
type ShippingAddress struct {
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}
