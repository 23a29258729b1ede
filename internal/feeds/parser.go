package feeds

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/Wikid82/scirius/backend/internal/models"
)

var (
	sidPattern = regexp.MustCompile(`(?:^|[;(\s])sid\s*:\s*(\d+)\s*;`)
	revPattern = regexp.MustCompile(`(?:^|[;(\s])rev\s*:\s*(\d+)\s*;`)
	msgPattern = regexp.MustCompile(`msg\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

const rulesSuffix = ".rules"

// Digest returns the blake2b-256 hex digest of a raw payload.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Parse turns a raw payload into a Feed according to the source datatype.
func Parse(src *models.Source, data []byte) (*Feed, error) {
	feed := &Feed{Digest: Digest(data)}

	switch src.Datatype {
	case models.SourceDatatypeArchive:
		cats, err := parseArchive(data, MaxArchiveSize)
		if err != nil {
			return nil, err
		}
		feed.Categories = cats
	case models.SourceDatatypeFile:
		filename := uriFilename(src.URI)
		name := strings.TrimSuffix(filename, rulesSuffix)
		if name == "" {
			name = src.Name
		}
		rules, err := ParseRules(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		feed.Categories = []FeedCategory{{
			Name:     name,
			Filename: filename,
			Rules:    rules,
		}}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDatatype, src.Datatype)
	}

	return feed, nil
}

// budgetReader fails with ErrFeedTooLarge once more than limit bytes were read.
type budgetReader struct {
	r         io.Reader
	limit     int64
	remaining int64
}

func (b *budgetReader) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, fmt.Errorf("%w: more than %d bytes", ErrFeedTooLarge, b.limit)
	}
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.r.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFeedTooLarge, b.limit)
	}
	return n, err
}

// parseArchive reads every .rules member of a tar.gz payload. limit bounds
// the decompressed size of the whole archive.
func parseArchive(data []byte, limit int64) ([]FeedCategory, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}
	defer gz.Close()

	byName := map[string]*FeedCategory{}
	tr := tar.NewReader(&budgetReader{r: gz, limit: limit, remaining: limit})
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, rulesSuffix) {
			continue
		}
		rules, err := ParseRules(tr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidArchive, hdr.Name, err)
		}
		filename := path.Base(hdr.Name)
		name := strings.TrimSuffix(filename, rulesSuffix)
		if cat, ok := byName[name]; ok {
			cat.Rules = append(cat.Rules, rules...)
			continue
		}
		byName[name] = &FeedCategory{Name: name, Filename: filename, Rules: rules}
	}

	cats := make([]FeedCategory, 0, len(byName))
	for _, c := range byName {
		cats = append(cats, *c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

// ParseRules extracts every active signature from a rules file. Comment lines
// and lines without a sid are skipped; a line ending in a backslash continues
// on the next one. Content keeps the original text and its newline. The first
// occurrence of a sid wins. Lines have no length cap; a read error aborts the
// whole file so a partial feed is never returned.
func ParseRules(r io.Reader) ([]FeedRule, error) {
	var (
		rules   []FeedRule
		seen    = map[uint]struct{}{}
		pending strings.Builder
	)

	add := func(content string) {
		rule, ok := parseRule(content)
		if !ok {
			return
		}
		if _, dup := seen[rule.SID]; dup {
			return
		}
		seen[rule.SID] = struct{}{}
		rules = append(rules, rule)
	}

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		raw, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if raw != "" {
			line := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
			if pending.Len() > 0 || !skipLine(line) {
				pending.WriteString(line)
				pending.WriteByte('\n')
				if !strings.HasSuffix(line, `\`) {
					add(pending.String())
					pending.Reset()
				}
			}
		}
		if err != nil {
			break
		}
	}
	if pending.Len() > 0 {
		add(pending.String())
	}
	return rules, nil
}

func skipLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}

func parseRule(content string) (FeedRule, bool) {
	m := sidPattern.FindStringSubmatch(content)
	if m == nil {
		return FeedRule{}, false
	}
	sid, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil || sid == 0 {
		return FeedRule{}, false
	}

	rule := FeedRule{SID: uint(sid), Content: content}
	if m := msgPattern.FindStringSubmatch(content); m != nil {
		rule.Msg = m[1]
	}
	if m := revPattern.FindStringSubmatch(content); m != nil {
		rule.Rev, _ = strconv.Atoi(m[1])
	}
	return rule, true
}

func uriFilename(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
	}
	base := path.Base(strings.ReplaceAll(p, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return base
}
