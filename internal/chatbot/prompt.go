package chatbot

import (
	"fmt"
	"strings"
)

const systemPreamble = `You are an assistant for malaria field workers and clinicians.
Answer clearly and concisely. Use the web search results below when they are relevant
and say so when they do not answer the question. Do not give a diagnosis for an
individual patient; advise referral to a clinician when symptoms are severe.`

func buildPrompt(query string, results []SearchResult) string {
	var sb strings.Builder
	sb.WriteString(systemPreamble)
	sb.WriteString("\n\n")

	if len(results) > 0 {
		sb.WriteString("Search results:\n")
		for i, r := range results {
			fmt.Fprintf(&sb, "[%d] %s\n%s\n%s\n", i+1, r.Title, r.Link, r.Snippet)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Question: ")
	sb.WriteString(query)
	return sb.String()
}

func resultURLs(results []SearchResult) []string {
	urls := make([]string, 0, len(results))
	for _, r := range results {
		if r.Link != "" {
			urls = append(urls, r.Link)
		}
	}
	return urls
}
