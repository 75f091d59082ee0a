package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Field extractors for AutoRia detail pages. The markup is unstable across
// listing variants, so every extractor tries an ordered chain of strategies
// and falls back to a documented default instead of failing. No extractor
// depends on another's result.

var (
	nonDigitRe      = regexp.MustCompile(`[^\d]`)
	nonPhoneCharRe  = regexp.MustCompile(`[^\d+]`)
	phoneScriptRe   = regexp.MustCompile(`"phone":\s*"([^"]+)"`)
	plateScriptRe   = regexp.MustCompile(`"plateNumber":\s*"([^"]+)"`)
	plateAltRe      = regexp.MustCompile(`"state_number":\s*"([^"]+)"`)
	plateFreeTextRe = regexp.MustCompile(`[A-ZА-Я]{2}\d{4}[A-ZА-Я]{2}`)
	vinScriptRe     = regexp.MustCompile(`"vin":\s*"([A-Z0-9]+)"`)
)

// cleanPhone strips every character except digits and a leading plus.
func cleanPhone(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := nonPhoneCharRe.ReplaceAllString(raw, "")
	if i := strings.LastIndex(cleaned, "+"); i > 0 {
		// keep only a leading plus
		cleaned = strings.ReplaceAll(cleaned, "+", "")
		cleaned = "+" + cleaned
	}
	return cleaned
}

// parseOdometer converts a "<number> тис." odometer string into kilometers.
// Unparsable input yields 0.
func parseOdometer(raw string) int {
	if raw == "" {
		return 0
	}
	raw = strings.TrimSpace(strings.ReplaceAll(raw, " тис.", ""))
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int(value * 1000)
}

// extractTitle returns the detail-page heading. The provisional title from
// discovery overrides this; it only backs up an empty card title.
func extractTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("h1.head").First().Text())
}

// extractPrice returns the USD price, 0 when absent or unparsable.
func extractPrice(doc *goquery.Document) int {
	text := strings.TrimSpace(doc.Find("div.price_value > strong").First().Text())
	if text == "" {
		return 0
	}
	digits := nonDigitRe.ReplaceAllString(text, "")
	price, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return price
}

// extractOdometer returns the odometer reading in kilometers, 0 when absent.
func extractOdometer(doc *goquery.Document) int {
	return parseOdometer(strings.TrimSpace(doc.Find("div.base-information > span").First().Text()))
}

// extractSellerName returns the seller name, empty when absent.
func extractSellerName(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("div.seller_info_name").First().Text())
}

// extractPhone tries, in order: the dedicated phone block, alternative
// phone-item selectors, data-phone-number attributes, and a regex scan over
// inline script bodies. The result is always normalized by cleanPhone.
func extractPhone(doc *goquery.Document) string {
	if block := doc.Find("div.phone_block").First(); block.Length() > 0 {
		return cleanPhone(strings.TrimSpace(block.Text()))
	}

	phone := ""
	doc.Find(".phones_item, .phones .item").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if p := cleanPhone(strings.TrimSpace(s.Text())); p != "" {
			phone = p
			return false
		}
		return true
	})
	if phone != "" {
		return phone
	}

	doc.Find("[data-phone-number]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if attr, exists := s.Attr("data-phone-number"); exists {
			phone = cleanPhone(attr)
			return false
		}
		return true
	})
	if phone != "" {
		return phone
	}

	if m := findInScripts(doc, phoneScriptRe); m != "" {
		return cleanPhone(m)
	}

	return ""
}

// extractPlateNumber tries the dedicated element, alternative selectors,
// data attributes, script-body JSON fields, and finally a licence-plate regex
// over free-text description containers. Empty when nothing matches.
func extractPlateNumber(doc *goquery.Document) string {
	if text := strings.TrimSpace(doc.Find("span.state-num").First().Text()); text != "" {
		return text
	}

	plate := ""
	doc.Find(".state-num, .number-plate, .plate-number, [data-plate]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := strings.TrimSpace(s.Text()); text != "" {
			plate = text
			return false
		}
		return true
	})
	if plate != "" {
		return plate
	}

	doc.Find("[data-plate], [data-number]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if attr, exists := s.Attr("data-plate"); exists && attr != "" {
			plate = attr
			return false
		}
		if attr, exists := s.Attr("data-number"); exists && attr != "" {
			plate = attr
			return false
		}
		return true
	})
	if plate != "" {
		return plate
	}

	if m := findInScripts(doc, plateScriptRe); m != "" {
		return m
	}
	if m := findInScripts(doc, plateAltRe); m != "" {
		return m
	}

	doc.Find("div.description-car, div.auto-wrap, div.autoinfo").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := plateFreeTextRe.FindString(s.Text()); m != "" {
			plate = m
			return false
		}
		return true
	})
	return plate
}

// extractVIN mirrors the plate chain: dedicated element, alternative
// selectors, data attributes, script-body scan. Empty when nothing matches.
func extractVIN(doc *goquery.Document) string {
	if text := strings.TrimSpace(doc.Find("span.vin-code").First().Text()); text != "" {
		return text
	}

	vin := ""
	doc.Find(".vin span, .label-vin, span[data-vin]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := strings.TrimSpace(s.Text()); text != "" {
			vin = text
			return false
		}
		return true
	})
	if vin != "" {
		return vin
	}

	doc.Find("[data-vin], [data-code]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if attr, exists := s.Attr("data-vin"); exists && attr != "" {
			vin = attr
			return false
		}
		if attr, exists := s.Attr("data-code"); exists && attr != "" {
			vin = attr
			return false
		}
		return true
	})
	if vin != "" {
		return vin
	}

	return findInScripts(doc, vinScriptRe)
}

// extractImages returns the primary photo URL and the photo count.
func extractImages(doc *goquery.Document) (string, int) {
	photos := doc.Find("div.photo-620x465 img")
	src, _ := photos.First().Attr("src")
	return src, photos.Length()
}

// findInScripts scans inline script bodies for the first submatch of re.
func findInScripts(doc *goquery.Document, re *regexp.Regexp) string {
	result := ""
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := re.FindStringSubmatch(s.Text()); len(m) > 1 {
			result = m[1]
			return false
		}
		return true
	})
	return result
}
