package collect

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/fetch"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/observability"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

// DefaultCategory is assigned to menu items outside any recognisable section.
const DefaultCategory = "General"

const (
	maxTextMenuItems   = 20
	maxSpecialties     = 5
	maxNameLength      = 100
	maxCategoryLength  = 50
	minPrice           = 0.5
	maxPrice           = 999.99
	minTextItemLength  = 6
	maxTextItemLength  = 99
	minTextItemNameLen = 3
)

var (
	menuItemSelectors = []string{
		".menu-item", ".menu-product", ".food-item", ".dish",
		"[class*='menu']", "[class*='food']", "[class*='dish']",
		".product", ".item", "[data-menu]",
	}
	itemNameSelectors = []string{
		".name", ".title", ".item-name", ".product-name", ".dish-name",
		"h1", "h2", "h3", "h4", ".menu-item-title", "[class*='name']",
	}
	itemDescriptionSelectors = []string{
		".description", ".desc", ".item-description", ".product-description",
		".ingredients", ".details", "p", ".menu-item-description",
	}
	itemPriceSelectors = []string{
		".price", ".cost", ".amount", ".item-price", ".product-price",
		"[class*='price']", "[data-price]",
	}
	categorySelectors = []string{"[data-category]", ".category", ".section", ".menu-section"}
	signatureKeywords = []string{
		"signature", "popular", "bestseller", "chef", "special", "featured",
		"recommended", "house special", "must try",
	}

	currencyPricePattern = regexp.MustCompile(`(?:S\$|\bRM|[$£€¥₹₽])\s*(\d+(?:\.\d{2})?)|(\d+(?:\.\d{2})?)\s*[$£€¥₹₽]`)
	barePricePattern     = regexp.MustCompile(`\b(\d{1,3}(?:\.\d{2})?)\b`)
)

// currencyMarkers are checked in order. S$ precedes $ so Singapore prices are not read as USD.
var currencyMarkers = []struct {
	marker string
	code   string
}{
	{"S$", "SGD"},
	{"$", "USD"},
	{"£", "GBP"},
	{"€", "EUR"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"₽", "RUB"},
	{"RM", "MYR"},
}

// Menu scrapes a menu from pageURL. The returned source has confidence 0.7 when items were
// found, 0.1 when the page had none and 0 when it could not be fetched.
func (c *Collector) Menu(ctx context.Context, pageURL string) (*types.MenuData, types.DataSource) {
	started := time.Now()

	result, err := fetch.Page(ctx, pageURL, c.pageOptions())
	if err != nil || result == nil {
		c.fail(NameMenu, started, err, zap.String("url", pageURL))
		return nil, types.NewScoredSource(types.SourceMenu, pageURL, 0, 0)
	}

	menu := ParseMenu(result.HTML)
	if menu == nil {
		c.record(NameMenu, observability.OutcomeEmpty, started, zap.String("url", pageURL), zap.Bool("rendered", result.Rendered))
		return nil, types.NewScoredSource(types.SourceMenu, pageURL, 0.1, 0)
	}

	c.record(NameMenu, observability.OutcomeOK, started,
		zap.String("url", pageURL),
		zap.Int("items", len(menu.Items)),
		zap.Bool("rendered", result.Rendered),
	)
	return menu, types.NewScoredSource(types.SourceMenu, pageURL, 0.7, len(menu.Items))
}

// ParseMenu extracts menu items from a page. It tries structured menu markup first and falls
// back to priced lines of body text. It returns nil when no item was found.
func ParseMenu(html string) *types.MenuData {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var items []types.MenuItem
	for _, sel := range menuItemSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if item, ok := menuItem(s); ok {
				items = append(items, item)
			}
		})
		if len(items) > 0 {
			break
		}
	}

	if len(items) == 0 {
		items = menuItemsFromText(doc.Find("body").Text())
	}
	if len(items) == 0 {
		return nil
	}

	menu := &types.MenuData{
		Categories:  []string{},
		Items:       items,
		PriceRange:  types.PriceRange{Currency: "USD"},
		Specialties: []string{},
	}

	seenCategory := map[string]bool{}
	first := true
	for _, item := range items {
		if !seenCategory[item.Category] {
			seenCategory[item.Category] = true
			menu.Categories = append(menu.Categories, item.Category)
		}
		if item.Price > 0 {
			if first || item.Price < menu.PriceRange.Min {
				menu.PriceRange.Min = item.Price
			}
			if first || item.Price > menu.PriceRange.Max {
				menu.PriceRange.Max = item.Price
			}
			first = false
		}
		if item.IsSignature && len(menu.Specialties) < maxSpecialties {
			menu.Specialties = append(menu.Specialties, item.Name)
		}
	}
	if !first {
		menu.PriceRange.Currency = DetectCurrency(html)
	}
	return menu
}

func menuItem(s *goquery.Selection) (types.MenuItem, bool) {
	name := firstText(s, itemNameSelectors)
	if name == "" {
		text := strings.TrimSpace(s.Text())
		if text == "" || len(text) >= maxNameLength {
			return types.MenuItem{}, false
		}
		name = strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	}
	if name == "" {
		return types.MenuItem{}, false
	}

	return types.MenuItem{
		Name:        name,
		Description: firstText(s, itemDescriptionSelectors),
		Price:       itemPrice(s),
		Category:    itemCategory(s),
		IsSignature: isSignature(s),
	}, true
}

func firstText(s *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(s.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func itemPrice(s *goquery.Selection) float64 {
	for _, sel := range itemPriceSelectors {
		el := s.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if price, ok := ParsePrice(strings.TrimSpace(el.Text())); ok {
			return price
		}
	}
	price, _ := ParsePrice(s.Text())
	return price
}

func itemCategory(s *goquery.Selection) string {
	for _, sel := range categorySelectors {
		el := s.Closest(sel)
		if el.Length() == 0 {
			continue
		}
		category, ok := el.Attr("data-category")
		if !ok || category == "" {
			category = strings.TrimSpace(strings.SplitN(strings.TrimSpace(el.Text()), "\n", 2)[0])
		}
		if category != "" && len(category) < maxCategoryLength {
			return category
		}
	}
	return DefaultCategory
}

func isSignature(s *goquery.Selection) bool {
	if s.HasClass("signature") || s.HasClass("popular") || s.HasClass("featured") {
		return true
	}
	text := strings.ToLower(s.Text())
	for _, kw := range signatureKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// ParsePrice reads a price from text. An amount next to a currency symbol wins; otherwise a
// bare number between 0.50 and 999.99 is accepted.
func ParsePrice(text string) (float64, bool) {
	if m := currencyPricePattern.FindStringSubmatch(text); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if price, err := strconv.ParseFloat(raw, 64); err == nil && price > 0 {
			return price, true
		}
		return 0, false
	}

	if m := barePricePattern.FindStringSubmatch(text); m != nil {
		if price, err := strconv.ParseFloat(m[1], 64); err == nil && price >= minPrice && price <= maxPrice {
			return price, true
		}
	}
	return 0, false
}

// DetectCurrency returns the ISO code of the first currency marker found in text, or USD.
func DetectCurrency(text string) string {
	for _, c := range currencyMarkers {
		if strings.Contains(text, c.marker) {
			return c.code
		}
	}
	return "USD"
}

func menuItemsFromText(body string) []types.MenuItem {
	var items []types.MenuItem
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < minTextItemLength || len(line) > maxTextItemLength {
			continue
		}
		price, ok := ParsePrice(line)
		if !ok {
			continue
		}
		name := strings.TrimSpace(currencyPricePattern.ReplaceAllString(line, ""))
		if len(name) < minTextItemNameLen {
			continue
		}
		items = append(items, types.MenuItem{Name: name, Price: price, Category: DefaultCategory})
		if len(items) == maxTextMenuItems {
			break
		}
	}
	return items
}
