// Package export renders an account's mirrored items as a browsable set of
// markdown files: an index plus one file per category.
package export

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jdholdren/stash/internal/stash"
)

// Display snippets are clipped well short of the stored text.
const snippetLimit = 300

// File is one rendered output file.
type File struct {
	Name    string
	Content string
}

var (
	nonWordRe    = regexp.MustCompile(`[^a-z0-9_\s-]`)
	separatorsRe = regexp.MustCompile(`[\s_]+`)
)

// Slugify converts a category name to a safe filename stem.
func Slugify(text string) string {
	text = strings.ToLower(text)
	text = nonWordRe.ReplaceAllString(text, "")
	text = separatorsRe.ReplaceAllString(text, "-")

	return strings.Trim(text, "-")
}

// Files renders the index and the per-category files. Categories and the
// subreddit groups inside them are ordered biggest first; items within a
// group are newest first.
func Files(items []stash.SavedItem) []File {
	byCategory := map[string][]stash.SavedItem{}
	for _, item := range items {
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool {
		a, b := categories[i], categories[j]
		if len(byCategory[a]) != len(byCategory[b]) {
			return len(byCategory[a]) > len(byCategory[b])
		}
		return a < b
	})

	files := []File{indexFile(categories, byCategory, len(items))}
	for _, category := range categories {
		files = append(files, categoryFile(category, byCategory[category]))
	}

	return files
}

func indexFile(categories []string, byCategory map[string][]stash.SavedItem, total int) File {
	lines := []string{"# Reddit Saved Items\n"}
	lines = append(lines, fmt.Sprintf("Total: %d items\n", total))
	lines = append(lines, "## Categories\n")

	for _, category := range categories {
		lines = append(lines, fmt.Sprintf("- [%s](%s.md) (%d items)", category, Slugify(category), len(byCategory[category])))
	}

	return File{Name: "README.md", Content: strings.Join(lines, "\n")}
}

func categoryFile(category string, items []stash.SavedItem) File {
	lines := []string{fmt.Sprintf("# %s\n", category)}
	lines = append(lines, fmt.Sprintf("%d saved items\n", len(items)))
	lines = append(lines, "[← Back to Index](README.md)\n")
	lines = append(lines, "---\n")

	bySubreddit := map[string][]stash.SavedItem{}
	for _, item := range items {
		bySubreddit[item.Subreddit] = append(bySubreddit[item.Subreddit], item)
	}

	subreddits := make([]string, 0, len(bySubreddit))
	for sub := range bySubreddit {
		subreddits = append(subreddits, sub)
	}
	sort.Slice(subreddits, func(i, j int) bool {
		a, b := subreddits[i], subreddits[j]
		if len(bySubreddit[a]) != len(bySubreddit[b]) {
			return len(bySubreddit[a]) > len(bySubreddit[b])
		}
		return a < b
	})

	for _, sub := range subreddits {
		group := bySubreddit[sub]
		lines = append(lines, fmt.Sprintf("\n## r/%s (%d)\n", sub, len(group)))

		sort.Slice(group, func(i, j int) bool {
			return group[i].CreatedUTC.After(group[j].CreatedUTC)
		})

		for _, item := range group {
			lines = append(lines, formatItem(item))
			lines = append(lines, "\n---\n")
		}
	}

	return File{Name: Slugify(category) + ".md", Content: strings.Join(lines, "\n")}
}

func formatItem(item stash.SavedItem) string {
	var lines []string

	if item.Kind == stash.KindPost {
		title := strVal(item.Title, "Untitled")
		lines = append(lines, fmt.Sprintf("### [%s](%s)", title, item.Permalink))
		lines = append(lines, meta(item))

		selftext := strVal(item.Selftext, "")
		switch {
		case item.IsSelf != nil && *item.IsSelf && selftext != "":
			lines = append(lines, "\n> "+snippet(selftext))
		case item.IsSelf == nil || !*item.IsSelf:
			lines = append(lines, "\n🔗 "+strVal(item.URL, ""))
		}

		return strings.Join(lines, "\n")
	}

	lines = append(lines, fmt.Sprintf("### [Comment on: %s](%s)", strVal(item.PostTitle, "Unknown post"), item.Permalink))
	lines = append(lines, meta(item))

	if body := strVal(item.Body, ""); body != "" {
		lines = append(lines, "\n> "+snippet(body))
	}

	return strings.Join(lines, "\n")
}

func meta(item stash.SavedItem) string {
	return fmt.Sprintf("**r/%s** · %d points · by u/%s\n*%s*",
		item.Subreddit, item.Score, item.Author, item.CreatedUTC.Format("2006-01-02"))
}

func snippet(s string) string {
	runes := []rune(s)
	if len(runes) <= snippetLimit {
		return s
	}

	return string(runes[:snippetLimit]) + "..."
}

func strVal(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}

	return *s
}
