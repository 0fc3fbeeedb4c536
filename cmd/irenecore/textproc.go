package main

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/irenevoice/irenecore/internal/config"
	"github.com/irenevoice/irenecore/internal/workflow"
)

// buildTextProcessor assembles the text_processor stage (spec §4.3) from
// config.TextProcessorConfig's two independent toggles. No pack example or
// ecosystem dependency does number-to-words expansion or ASR-transcript
// punctuation cleanup (the pack's text libraries — golang.org/x/text — are
// Unicode normalization/transform, not this), so both stages are small,
// fixed-shape regexp/strconv transforms implemented directly rather than
// left unimplemented; see DESIGN.md for the standard-library justification.
func buildTextProcessor(cfg config.TextProcessorConfig) workflow.TextProcessor {
	if !cfg.NumberExpansion && !cfg.PunctuationCleanup {
		return nil
	}
	return workflow.TextProcessorFunc(func(text string) string {
		if cfg.NumberExpansion {
			text = expandNumbers(text)
		}
		if cfg.PunctuationCleanup {
			text = cleanupPunctuation(text)
		}
		return text
	})
}

var integerPattern = regexp.MustCompile(`-?\d+`)

// expandNumbers replaces every run of digits with its English word form, up
// to the thousands place — enough for the spoken quantities a voice
// assistant command realistically contains ("set a timer for 5 minutes").
// Numbers of a million or more are left as-is. Each digit run is converted
// on its own, so the two sides of a decimal point ("3.5") are expanded
// separately ("three.five").
func expandNumbers(text string) string {
	return integerPattern.ReplaceAllStringFunc(text, func(digits string) string {
		n, err := strconv.Atoi(digits)
		if err != nil {
			return digits
		}
		words := numberToWords(n)
		if words == "" {
			return digits
		}
		return words
	})
}

var ones = []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
	"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen", "eighteen", "nineteen"}
var tens = []string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"}

// numberToWords converts n to English words for |n| < 1,000,000; returns ""
// for anything larger, leaving the caller to keep the original digits.
func numberToWords(n int) string {
	if n < 0 {
		words := numberToWords(-n)
		if words == "" {
			return ""
		}
		return "negative " + words
	}
	switch {
	case n < 20:
		return ones[n]
	case n < 100:
		word := tens[n/10]
		if n%10 != 0 {
			word += "-" + ones[n%10]
		}
		return word
	case n < 1000:
		word := ones[n/100] + " hundred"
		if n%100 != 0 {
			word += " " + numberToWords(n%100)
		}
		return word
	case n < 1_000_000:
		word := numberToWords(n/1000) + " thousand"
		if n%1000 != 0 {
			word += " " + numberToWords(n%1000)
		}
		return word
	default:
		return ""
	}
}

var (
	repeatedPunctuation = regexp.MustCompile(`\.{2,}|,{2,}|!{2,}|\?{2,}`)
	spaceBeforePunct    = regexp.MustCompile(`\s+([.,!?])`)
	multiSpace          = regexp.MustCompile(`\s{2,}`)
)

// cleanupPunctuation collapses ASR artifacts: doubled punctuation, stray
// whitespace before a punctuation mark, and runs of whitespace.
func cleanupPunctuation(text string) string {
	text = repeatedPunctuation.ReplaceAllStringFunc(text, func(run string) string { return run[:1] })
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
