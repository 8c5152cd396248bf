// Package catalog is the static price list and print SKU table.
package catalog

import (
	"github.com/pipcasso/fulfillment/internal/domain"
)

// Quote is the price and, for physical variants, the fulfillment SKU of a selection.
type Quote struct {
	UnitPriceCents int64
	ProductName    string
	SKU            string
}

var digitalPrices = map[domain.Variant]Quote{
	domain.VariantDigitalBasic:   {UnitPriceCents: 499, ProductName: "Basic Resolution Image"},
	domain.VariantDigitalHighRes: {UnitPriceCents: 1499, ProductName: "High-Resolution Image"},
	domain.VariantDigitalPDF:     {UnitPriceCents: 1999, ProductName: "Dice Map PDF"},
	domain.VariantDigitalBundle:  {UnitPriceCents: 2995, ProductName: "Digital Bundle (PDF + High-Res)"},
}

var printPrices = map[domain.Size]int64{
	domain.SizeSmall: 5999,
	domain.SizeLarge: 8999,
}

type printKey struct {
	aspect domain.AspectRatio
	size   domain.Size
}

// printSKUs maps (aspect ratio, size) to the print provider's product UID.
var printSKUs = map[printKey]string{
	{domain.AspectSquare, domain.SizeSmall}:    "posters_pf_300x300-mm_pt_200-gsm-poster-paper_cl_4-0_ver",
	{domain.AspectSquare, domain.SizeLarge}:    "posters_pf_500x500-mm_pt_200-gsm-poster-paper_cl_4-0_ver",
	{domain.AspectPortrait, domain.SizeSmall}:  "posters_pf_300x400-mm_pt_200-gsm-poster-paper_cl_4-0_ver",
	{domain.AspectPortrait, domain.SizeLarge}:  "posters_pf_500x700-mm_pt_200-gsm-poster-paper_cl_4-0_ver",
	{domain.AspectLandscape, domain.SizeSmall}: "posters_pf_400x300-mm_pt_200-gsm-poster-paper_cl_4-0_hor",
	{domain.AspectLandscape, domain.SizeLarge}: "posters_pf_700x500-mm_pt_200-gsm-poster-paper_cl_4-0_hor",
}

var kits = map[domain.Size]Quote{
	domain.Kit10mm: {UnitPriceCents: 14999, ProductName: "DIY Dice Mosaic Kit (10mm)", SKU: "PIP-KIT-10MM"},
	domain.Kit8mm:  {UnitPriceCents: 11999, ProductName: "DIY Dice Mosaic Kit (8mm)", SKU: "PIP-KIT-8MM"},
}

// PriceAndSKU prices a selection. Anything outside the enumerated variant,
// size, kit, and aspect ratio values is domain.ErrInvalidVariant.
func PriceAndSKU(sel domain.Selection) (Quote, error) {
	if sel.AspectRatio != "" && !validAspect(sel.AspectRatio) {
		return Quote{}, domain.InvalidVariant("aspectRatio", string(sel.AspectRatio))
	}

	switch sel.Variant {
	case domain.VariantDigitalBasic, domain.VariantDigitalHighRes, domain.VariantDigitalPDF, domain.VariantDigitalBundle:
		if sel.Size != domain.SizeNone {
			return Quote{}, domain.InvalidVariant("sizeOrKit", string(sel.Size))
		}
		return digitalPrices[sel.Variant], nil

	case domain.VariantPhysicalPrint:
		price, ok := printPrices[sel.Size]
		if !ok {
			return Quote{}, domain.InvalidVariant("sizeOrKit", string(sel.Size))
		}
		sku, ok := printSKUs[printKey{sel.AspectRatio, sel.Size}]
		if !ok {
			return Quote{}, domain.InvalidVariant("aspectRatio", string(sel.AspectRatio))
		}
		return Quote{UnitPriceCents: price, ProductName: "Physical Print", SKU: sku}, nil

	case domain.VariantPhysicalKit:
		q, ok := kits[sel.Size]
		if !ok {
			return Quote{}, domain.InvalidVariant("sizeOrKit", string(sel.Size))
		}
		return q, nil
	}

	return Quote{}, domain.InvalidVariant("variantKind", string(sel.Variant))
}

// RequiredAssets lists the asset reference fields a variant cannot be fulfilled without.
func RequiredAssets(v domain.Variant) []string {
	switch v {
	case domain.VariantDigitalBasic:
		return []string{"lowResUrl"}
	case domain.VariantDigitalHighRes, domain.VariantPhysicalPrint:
		return []string{"highResUrl"}
	case domain.VariantDigitalPDF, domain.VariantPhysicalKit:
		return []string{"pdfUrl"}
	case domain.VariantDigitalBundle:
		return []string{"pdfUrl", "highResUrl"}
	}
	return nil
}

// MissingAsset returns the first required asset reference that is empty, or "".
func MissingAsset(sel domain.Selection) string {
	for _, name := range RequiredAssets(sel.Variant) {
		if assetValue(sel.Assets, name) == "" {
			return name
		}
	}
	return ""
}

// PrintImage is the file sent to the print provider: the high-res render for
// prints, the dice map for kits.
func PrintImage(sel domain.Selection) string {
	if sel.Variant == domain.VariantPhysicalKit {
		return sel.Assets.PDFURL
	}
	if sel.Assets.HighResURL != "" {
		return sel.Assets.HighResURL
	}
	return sel.Assets.LowResURL
}

func assetValue(a domain.AssetRefs, name string) string {
	switch name {
	case "lowResUrl":
		return a.LowResURL
	case "highResUrl":
		return a.HighResURL
	case "pdfUrl":
		return a.PDFURL
	}
	return ""
}

func validAspect(a domain.AspectRatio) bool {
	switch a {
	case domain.AspectSquare, domain.AspectPortrait, domain.AspectLandscape:
		return true
	}
	return false
}
