package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// isWebURL checks if the input string is an HTTP/HTTPS URL.
func isWebURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// ScanURL counts quoted strings served over HTTP. A YAML document is counted
// directly; an HTML page is treated as a directory listing and every linked
// .yml/.yaml file is fetched and counted. Only a failure to fetch rawURL
// itself is an error.
func (s *Scanner) ScanURL(client *http.Client, rawURL string) (*ScanResult, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", rawURL, err)
	}
	pageURL.Fragment = ""

	body, contentType, err := fetchURL(client, pageURL.String())
	if err != nil {
		return nil, err
	}

	result := &ScanResult{Files: []FileRecord{}}
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		if err := s.addDocument(result, pageURL.String(), body); err != nil {
			return nil, err
		}
		return result, nil
	}

	links, err := yamlLinks(pageURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", pageURL, err)
	}
	s.Logger.Debug("found linked YAML files", zap.String("url", pageURL.String()), zap.Int("count", len(links)))

	for _, link := range links {
		linkBody, _, err := fetchURL(client, link)
		if err != nil {
			s.Logger.Warn("无法读取文件", zap.String("file", link), zap.Error(err))
			continue
		}
		if err := s.addDocument(result, link, linkBody); err != nil {
			s.Logger.Warn("无法读取文件", zap.String("file", link), zap.Error(err))
		}
	}
	return result, nil
}

func (s *Scanner) addDocument(result *ScanResult, name string, body []byte) error {
	text, err := decodeText(bytes.NewReader(body), s.Encoding)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	result.add(s.tally(name, text))
	return nil
}

// fetchURL performs a GET and returns the body and its content type.
func fetchURL(client *http.Client, target string) ([]byte, string, error) {
	res, err := client.Get(target)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch URL %s: %w", target, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, "", fmt.Errorf("failed to fetch URL %s: status code %d", target, res.StatusCode)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body from %s: %w", target, err)
	}
	return body, res.Header.Get("Content-Type"), nil
}

// yamlLinks collects the distinct .yml/.yaml links of an HTML page, resolved
// against base, in document order.
func yamlLinks(base *url.URL, body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		link, exists := sel.Attr("href")
		lower := strings.ToLower(link)
		if !exists || link == "" || strings.HasPrefix(link, "#") ||
			strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:") {
			return
		}

		resolved, err := base.Parse(link)
		if err != nil {
			return
		}
		resolved.Fragment = ""
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if !isYAMLFile(resolved.Path) {
			return
		}

		target := resolved.String()
		if !seen[target] {
			seen[target] = true
			links = append(links, target)
		}
	})
	return links, nil
}
