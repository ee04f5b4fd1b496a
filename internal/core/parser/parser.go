// Package parser turns pasted supplier parts lists into structured line items.
//
// A data row carries at least five columns: sequence, part number, description,
// quantity and unit price, optionally followed by a line total. Columns are tab
// separated; rows with fewer than five tab-separated cells are re-split on runs
// of two or more whitespace characters. Rows that fail to parse are skipped.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/shopspring/decimal"
)

const minColumns = 5

var (
	whitespaceRun  = regexp.MustCompile(`\s{2,}`)
	currencyPrefix = regexp.MustCompile(`^(?:[A-Za-z]{3}\.?|[$€£])`)
	headerMarkers  = []string{"SR #", "PART #"}
)

type Parser struct {
	rules Rules
}

func New(rules Rules) *Parser {
	return &Parser{rules: rules}
}

var defaultParser = New(DefaultRules())

// Parse parses text with the built-in rules.
func Parse(text string) []domain.ParsedLineItem {
	return defaultParser.Parse(text)
}

func (p *Parser) Parse(text string) []domain.ParsedLineItem {
	items, _ := p.ParseWithStats(text)
	return items
}

func (p *Parser) ParseWithStats(text string) ([]domain.ParsedLineItem, domain.ParseStats) {
	var stats domain.ParseStats
	items := make([]domain.ParsedLineItem, 0)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.Lines++
		if IsHeader(line) {
			stats.Headers++
			continue
		}
		item, ok := p.ParseLine(line)
		if !ok {
			stats.Skipped++
			continue
		}
		items = append(items, item)
	}
	stats.Parsed = len(items)
	return items, stats
}

// IsHeader reports whether a line is a column header row.
func IsHeader(line string) bool {
	upper := strings.ToUpper(line)
	for _, marker := range headerMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// ParseLine parses one data row. It returns false when the row is unusable.
func (p *Parser) ParseLine(line string) (domain.ParsedLineItem, bool) {
	tokens := tokenize(line)
	if len(tokens) < minColumns {
		return domain.ParsedLineItem{}, false
	}

	seq, err := strconv.Atoi(strings.TrimRight(tokens[0], ".)"))
	if err != nil {
		return domain.ParsedLineItem{}, false
	}
	partNumber := tokens[1]
	description := tokens[2]
	if partNumber == "" || description == "" {
		return domain.ParsedLineItem{}, false
	}

	quantity, err := strconv.Atoi(stripSpaces(tokens[3]))
	if err != nil || quantity <= 0 {
		return domain.ParsedLineItem{}, false
	}

	unitPrice, ok := parseMoney(tokens[4])
	if !ok {
		return domain.ParsedLineItem{}, false
	}

	lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	if len(tokens) > minColumns {
		total, ok := parseMoney(tokens[5])
		if !ok {
			return domain.ParsedLineItem{}, false
		}
		lineTotal = total
	}

	return domain.ParsedLineItem{
		Sequence:    seq,
		PartNumber:  partNumber,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   lineTotal,
		Brand:       p.DetectBrand(partNumber),
		Category:    p.Categorize(description),
	}, true
}

// DetectBrand returns the first brand whose pattern matches the part number, or "".
func (p *Parser) DetectBrand(partNumber string) string {
	partNumber = strings.TrimSpace(partNumber)
	for _, rule := range p.rules.Brands {
		if rule.Pattern.MatchString(partNumber) {
			return rule.Name
		}
	}
	return ""
}

// Categorize returns the first category with a keyword contained in the description.
func (p *Parser) Categorize(description string) string {
	lower := strings.ToLower(description)
	for _, rule := range p.rules.Categories {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lower, keyword) {
				return rule.Name
			}
		}
	}
	return domain.DefaultCategory
}

func tokenize(line string) []string {
	trimmed := strings.TrimSpace(line)
	raw := strings.Split(trimmed, "\t")
	if len(raw) < minColumns {
		raw = whitespaceRun.Split(trimmed, -1)
	}

	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func parseMoney(raw string) (decimal.Decimal, bool) {
	cleaned := currencyPrefix.ReplaceAllString(strings.TrimSpace(raw), "")
	cleaned = strings.ReplaceAll(stripSpaces(cleaned), ",", "")
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil || value.IsNegative() {
		return decimal.Decimal{}, false
	}
	return value, true
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
