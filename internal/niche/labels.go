package niche

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

const labelTerms = 5

var stopWords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`a about after all also an and any are as at be been but by can
		do does for from get got has have how i if in into is it its just like make more most my new
		no not of on one or our out over so some than that the their them then there these they this
		to too up us very vs was we what when which who why will with you your
		video videos official shorts short full part ep episode`) {
		stopWords[w] = true
	}
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 || stopWords[f] || isNumber(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// LabelClusters names each cluster after the terms that are frequent in its
// texts and rare in the others' (TF-IDF with each cluster as one document).
// A cluster with no texts is "Unknown"; one with no usable terms is "Cluster".
func LabelClusters(texts [][]string) []string {
	docs := make([]map[string]float64, len(texts))
	df := make(map[string]int)
	for i, group := range texts {
		tf := make(map[string]float64)
		for _, t := range group {
			for _, tok := range tokenize(t) {
				tf[tok]++
			}
		}
		for tok := range tf {
			df[tok]++
		}
		docs[i] = tf
	}

	n := float64(len(texts))
	labels := make([]string, len(texts))
	for i, tf := range docs {
		if len(texts[i]) == 0 {
			labels[i] = "Unknown"
			continue
		}
		if len(tf) == 0 {
			labels[i] = "Cluster"
			continue
		}

		type term struct {
			tok   string
			score float64
		}
		terms := make([]term, 0, len(tf))
		for tok, count := range tf {
			idf := math.Log((1+n)/(1+float64(df[tok]))) + 1
			terms = append(terms, term{tok, count * idf})
		}
		sort.Slice(terms, func(a, b int) bool {
			if terms[a].score != terms[b].score {
				return terms[a].score > terms[b].score
			}
			return terms[a].tok < terms[b].tok
		})
		if len(terms) > labelTerms {
			terms = terms[:labelTerms]
		}
		words := make([]string, len(terms))
		for j, t := range terms {
			words[j] = t.tok
		}
		labels[i] = strings.Join(words, " | ")
	}
	return labels
}
