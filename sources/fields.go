package sources

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"valuescout/scraper"
)

var asinPattern = regexp.MustCompile(`/(?:dp|gp/product|gp/aw/d)/([A-Z0-9]{10})(?:[/?#]|$)`)

// ExtractASIN returns the Amazon identifier in a product link, or ""
func ExtractASIN(link string) string {
	m := asinPattern.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}

// priceField decodes SerpAPI prices, which arrive as "₹1,299", 1299 or {"raw": "₹1,299", "value": 1299}
type priceField struct {
	Text  string
	Value *float64
}

func (p *priceField) UnmarshalJSON(data []byte) error {
	switch {
	case len(data) == 0 || string(data) == "null":
		return nil
	case data[0] == '"':
		return json.Unmarshal(data, &p.Text)
	case data[0] == '{':
		var obj struct {
			Raw   string   `json:"raw"`
			Value *float64 `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		p.Text, p.Value = obj.Raw, obj.Value
		return nil
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		p.Value = &v
		p.Text = strconv.FormatFloat(v, 'f', -1, 64)
		return nil
	}
}

// Amount prefers the parsed text and falls back to the numeric value
func (p priceField) Amount() *float64 {
	if v := scraper.NormalizePrice(p.Text); v != nil && *v > 0 {
		return v
	}
	if p.Value != nil && *p.Value > 0 {
		v := *p.Value
		return &v
	}
	return nil
}

// countField decodes review counts sent either as numbers or as "1,234"
type countField struct {
	Value *int
}

func (c *countField) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n := int(f)
		c.Value = &n
	}
	return nil
}

// ratingField decodes ratings sent either as numbers or strings
type ratingField struct {
	Value *float64
}

func (r *ratingField) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		r.Value = &f
	}
	return nil
}
