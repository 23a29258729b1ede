package services

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Wikid82/scirius/backend/internal/models"
)

var referencePattern = regexp.MustCompile(`reference:(\w+),(\S+);`)

// Reference is an external citation embedded in a rule. URL is empty when the
// key has no known resolver.
type Reference struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	URL   string `json:"url,omitempty"`
}

// ExtractReferences returns every reference annotation of content in the
// order it appears.
func ExtractReferences(content string) []Reference {
	matches := referencePattern.FindAllStringSubmatch(content, -1)
	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		ref := Reference{Key: m[1], Value: m[2]}
		switch ref.Key {
		case "url":
			ref.URL = "http://" + ref.Value
		case "cve":
			ref.URL = "http://web.nvd.nist.gov/view/vuln/detail?vulnId=CVE-" + ref.Value
			ref.Key = "CVE"
		case "bugtraq":
			ref.URL = "http://www.securityfocus.com/bid/" + ref.Value
		}
		refs = append(refs, ref)
	}
	return refs
}

type cachedReferences struct {
	content string
	refs    []Reference
}

// ReferenceCache memoizes ExtractReferences per rule. An entry is reused only
// while the rule content is unchanged.
type ReferenceCache struct {
	cache *lru.Cache[uint, cachedReferences]
}

func NewReferenceCache(size int) (*ReferenceCache, error) {
	c, err := lru.New[uint, cachedReferences](size)
	if err != nil {
		return nil, err
	}
	return &ReferenceCache{cache: c}, nil
}

// For returns the references of rule. The returned slice must not be modified.
func (c *ReferenceCache) For(rule *models.Rule) []Reference {
	if entry, ok := c.cache.Get(rule.ID); ok && entry.content == rule.Content {
		return entry.refs
	}
	refs := ExtractReferences(rule.Content)
	c.cache.Add(rule.ID, cachedReferences{content: rule.Content, refs: refs})
	return refs
}

// Len reports the number of cached rules.
func (c *ReferenceCache) Len() int {
	return c.cache.Len()
}
