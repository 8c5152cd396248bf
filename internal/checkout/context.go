package checkout

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pipcasso/fulfillment/internal/catalog"
	"github.com/pipcasso/fulfillment/internal/domain"
)

// Metadata keys attached to the payment session. Stripe allows 50 keys of
// up to 500 characters each.
const (
	keyVersion       = "v"
	keyVariant       = "variantKind"
	keySize          = "sizeOrKit"
	keyQuantity      = "quantity"
	keyAspectRatio   = "aspectRatio"
	keyStyleID       = "styleId"
	keyAssetRefs     = "assetRefs"
	keyProjectName   = "projectName"
	keyCustomerEmail = "customerEmail"
	keyUnitPrice     = "unitPrice"
	keySKU           = "sku"

	contextVersion = "1"
)

// Context is everything fulfillment needs, recovered from session metadata alone.
type Context struct {
	Selection      domain.Selection
	UnitPriceCents int64
	SKU            string
}

// EncodeContext flattens a priced selection into string metadata. Absent
// optional fields become "" so DecodeContext never meets a missing key it
// did not expect.
func EncodeContext(sel domain.Selection, quote catalog.Quote) (map[string]string, error) {
	assets, err := json.Marshal(sel.Assets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode asset refs: %w", err)
	}

	return map[string]string{
		keyVersion:       contextVersion,
		keyVariant:       string(sel.Variant),
		keySize:          string(sel.Size),
		keyQuantity:      strconv.FormatInt(sel.Quantity, 10),
		keyAspectRatio:   string(sel.AspectRatio),
		keyStyleID:       strconv.Itoa(sel.StyleID),
		keyAssetRefs:     string(assets),
		keyProjectName:   sel.ProjectName,
		keyCustomerEmail: sel.CustomerEmail,
		keyUnitPrice:     strconv.FormatInt(quote.UnitPriceCents, 10),
		keySKU:           quote.SKU,
	}, nil
}

// DecodeContext rebuilds the priced selection. It fails closed: a missing
// email, project name, or variant asset is a MissingFieldError and an
// unknown variant is an InvalidVariantError.
func DecodeContext(md map[string]string) (Context, error) {
	if md == nil {
		return Context{}, domain.MissingField(keyVariant)
	}

	var c Context
	sel := &c.Selection

	sel.CustomerEmail = md[keyCustomerEmail]
	if strings.TrimSpace(sel.CustomerEmail) == "" {
		return Context{}, domain.MissingField(keyCustomerEmail)
	}
	sel.ProjectName = md[keyProjectName]
	if sel.ProjectName == "" {
		return Context{}, domain.MissingField(keyProjectName)
	}

	variant, ok := md[keyVariant]
	if !ok || variant == "" {
		return Context{}, domain.MissingField(keyVariant)
	}
	sel.Variant = domain.Variant(variant)
	sel.Size = domain.Size(md[keySize])
	sel.AspectRatio = domain.AspectRatio(md[keyAspectRatio])

	qty, err := parseInt(md, keyQuantity)
	if err != nil {
		return Context{}, err
	}
	if qty <= 0 {
		return Context{}, fmt.Errorf("%w: quantity %d", domain.ErrInvalidInput, qty)
	}
	sel.Quantity = qty

	if raw := md[keyStyleID]; raw != "" {
		style, err := strconv.Atoi(raw)
		if err != nil {
			return Context{}, fmt.Errorf("%w: styleId %q", domain.ErrInvalidInput, raw)
		}
		sel.StyleID = style
	}

	if raw := md[keyAssetRefs]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &sel.Assets); err != nil {
			return Context{}, fmt.Errorf("%w: assetRefs: %v", domain.ErrInvalidInput, err)
		}
	}

	quote, err := catalog.PriceAndSKU(*sel)
	if err != nil {
		return Context{}, err
	}
	if name := catalog.MissingAsset(*sel); name != "" {
		return Context{}, domain.MissingField(name)
	}

	price, err := parseInt(md, keyUnitPrice)
	if err != nil {
		return Context{}, err
	}
	c.UnitPriceCents = price

	c.SKU = md[keySKU]
	if c.SKU == "" {
		c.SKU = quote.SKU
	}

	return c, nil
}

func parseInt(md map[string]string, key string) (int64, error) {
	raw, ok := md[key]
	if !ok || raw == "" {
		return 0, domain.MissingField(key)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", domain.ErrInvalidInput, key, raw)
	}
	return v, nil
}
