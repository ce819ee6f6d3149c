package research

import (
	"fmt"
	"strings"
)

// The formatters below produce the markdown the downstream agent and the
// brief renderer consume. The shapes are part of the tool contract: headings,
// the two-decimal relevance score, and the explicit empty-state markers must
// stay stable.

func formatSearchResults(query string, resp searchResponse) string {
	var b strings.Builder
	b.WriteString("## Web Search Results\n")
	fmt.Fprintf(&b, "**Query:** %s\n\n", query)

	if resp.Answer != "" {
		b.WriteString("### Summary\n")
		b.WriteString(resp.Answer)
		b.WriteString("\n\n")
	}

	if len(resp.Results) > 0 {
		b.WriteString("### Sources\n\n")
		for i, r := range resp.Results {
			title := r.Title
			if title == "" {
				title = "Untitled"
			}
			fmt.Fprintf(&b, "#### %d. %s\n", i+1, title)
			fmt.Fprintf(&b, "**URL:** %s\n", r.URL)
			fmt.Fprintf(&b, "**Relevance:** %.2f\n\n", r.Score)
			b.WriteString(r.Content)
			b.WriteString("\n\n---\n\n")
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func formatResearchReport(query string, resp researchResponse) string {
	var b strings.Builder
	b.WriteString("## Deep Research Report\n")
	fmt.Fprintf(&b, "**Research Question:** %s\n\n", query)

	switch {
	case resp.Report != "":
		b.WriteString(resp.Report)
	case resp.Content != "":
		b.WriteString(resp.Content)
	case resp.Answer != "":
		b.WriteString(resp.Answer)
	default:
		b.WriteString("_The research model returned no report._")
	}
	b.WriteString("\n")

	if len(resp.Sources) > 0 {
		b.WriteString("\n### Sources Consulted\n\n")
		for _, s := range resp.Sources {
			title := s.Title
			if title == "" {
				title = "Source"
			}
			fmt.Fprintf(&b, "- [%s](%s)\n", title, s.URL)
		}
	}

	return b.String()
}

func formatExtractionResults(urls []string, resp extractResponse, focusQuery string) string {
	var b strings.Builder
	b.WriteString("## Content Extraction Results\n")
	fmt.Fprintf(&b, "**URLs Processed:** %d\n", len(urls))
	if focusQuery != "" {
		fmt.Fprintf(&b, "**Focus Query:** %s\n", focusQuery)
	}
	b.WriteString("\n---\n\n")

	if len(resp.Results) == 0 {
		b.WriteString("_No content could be extracted from the provided URLs._\n")
		return b.String()
	}

	for _, r := range resp.Results {
		url := r.URL
		if url == "" {
			url = "Unknown URL"
		}
		fmt.Fprintf(&b, "### %s\n\n", url)
		if r.RawContent != "" {
			b.WriteString(r.RawContent)
		} else {
			b.WriteString("_No content extracted_")
		}
		b.WriteString("\n\n---\n\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func formatSiteMap(url string, resp mapResponse) string {
	var b strings.Builder
	b.WriteString("## Site Map\n")
	fmt.Fprintf(&b, "**Domain:** %s\n\n", url)
	b.WriteString("### Discovered Pages\n\n")

	if len(resp.URLs) == 0 {
		b.WriteString("_No pages discovered. The site may block crawling._\n")
		return b.String()
	}

	for _, page := range resp.URLs {
		if page.Title != "" {
			fmt.Fprintf(&b, "- [%s](%s)\n", page.Title, page.URL)
		} else {
			fmt.Fprintf(&b, "- %s\n", page.URL)
		}
	}

	return b.String()
}

func formatCrawlResults(url, instructions string, resp crawlResponse) string {
	var b strings.Builder
	b.WriteString("## Site Crawl Results\n")
	fmt.Fprintf(&b, "**Starting URL:** %s\n", url)
	fmt.Fprintf(&b, "**Instructions:** %s\n\n---\n\n", instructions)

	if len(resp.Results) == 0 {
		b.WriteString("_The crawl returned no pages._\n")
		return b.String()
	}

	for _, r := range resp.Results {
		fmt.Fprintf(&b, "### %s\n\n", r.URL)
		content := r.Content
		if content == "" {
			content = r.RawContent
		}
		b.WriteString(content)
		b.WriteString("\n\n---\n\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
