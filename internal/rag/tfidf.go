package rag

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern matches words and numbers, keeping inner apostrophes
// ("don't", "user’s") attached to the word.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// stopwords are dropped from both fragments and queries.
var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of",
		"in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been",
		"being", "it", "its", "this", "that", "these", "those", "from", "up", "down",
		"over", "under", "again", "further", "than", "so", "such", "into", "about",
		"between", "through", "during", "before", "after", "above", "below", "out",
		"off", "own", "same", "too", "very", "can", "will", "just", "should", "now",
		"what", "which", "who", "whom", "how", "why", "when", "where", "do", "does",
		"did", "i", "me", "my", "you", "your", "we", "our", "they", "their", "there",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// tokenize lower-cases text and returns its non-stopword tokens in order.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// termWeight is one non-zero component of a sparse vector.
type termWeight struct {
	term   int
	weight float64
}

// sparseVec is an L2-normalised sparse vector sorted by term index, so dot
// products are computed in a fixed order and results are reproducible.
type sparseVec []termWeight

func (a sparseVec) dot(b sparseVec) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].term == b[j].term:
			sum += a[i].weight * b[j].weight
			i++
			j++
		case a[i].term < b[j].term:
			i++
		default:
			j++
		}
	}
	return sum
}

// TFIDFIndexer builds term-frequency / inverse-document-frequency indexes.
// It holds no state between rebuilds and is safe for concurrent use.
type TFIDFIndexer struct{}

// NewTFIDFIndexer returns the default lexical indexing strategy.
func NewTFIDFIndexer() *TFIDFIndexer { return &TFIDFIndexer{} }

// Name implements Indexer.
func (*TFIDFIndexer) Name() string { return "tfidf" }

// Rebuild derives the vocabulary and smoothed IDF weights from fragments and
// vectorises every fragment against them.
func (*TFIDFIndexer) Rebuild(_ context.Context, fragments []Fragment) (Index, error) {
	if len(fragments) == 0 {
		return EmptyIndex(), nil
	}

	docTokens := make([][]string, len(fragments))
	df := make(map[string]int)
	for i, f := range fragments {
		toks := tokenize(f.Text)
		docTokens[i] = toks
		seen := make(map[string]struct{}, len(toks))
		for _, t := range toks {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	idx := &tfidfIndex{
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
		vectors:    make([]sparseVec, len(fragments)),
	}
	n := float64(len(fragments))
	for i, t := range terms {
		idx.vocabulary[t] = i
		idx.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	for i, toks := range docTokens {
		idx.vectors[i] = idx.vectorize(toks)
	}
	return idx, nil
}

// tfidfIndex is the immutable result of a TF-IDF rebuild.
type tfidfIndex struct {
	vocabulary map[string]int
	idf        []float64
	vectors    []sparseVec
}

func (x *tfidfIndex) Len() int { return len(x.vectors) }

// Scores vectorises query with the build-time vocabulary and returns the
// cosine similarity against every fragment. Out-of-vocabulary terms are
// ignored, so a query with no known terms scores zero everywhere.
func (x *tfidfIndex) Scores(_ context.Context, query string) ([]float64, error) {
	q := x.vectorize(tokenize(query))
	scores := make([]float64, len(x.vectors))
	if len(q) == 0 {
		return scores, nil
	}
	for i, v := range x.vectors {
		scores[i] = q.dot(v)
	}
	return scores, nil
}

// vectorize converts tokens to an L2-normalised TF-IDF vector.
func (x *tfidfIndex) vectorize(tokens []string) sparseVec {
	counts := make(map[int]int)
	total := 0
	for _, t := range tokens {
		if term, ok := x.vocabulary[t]; ok {
			counts[term]++
			total++
		}
	}
	if total == 0 {
		return nil
	}

	vec := make(sparseVec, 0, len(counts))
	for term, c := range counts {
		vec = append(vec, termWeight{term: term, weight: float64(c) / float64(total) * x.idf[term]})
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].term < vec[j].term })

	var norm float64
	for _, tw := range vec {
		norm += tw.weight * tw.weight
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i].weight /= norm
		}
	}
	return vec
}
