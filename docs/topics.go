// Package docs holds the rk user manual, one markdown file per topic.
package docs

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"
)

//go:embed *.md
var docs embed.FS

// readme is the topic listing every other topic.
const readme = "readme"

// GetTopic returns the content of a documentation topic. "*" is every topic.
func GetTopic(topic string) (string, error) {
	if topic == "*" {
		return GetTopics(Topics()...)
	}
	content, err := docs.ReadFile(topic + ".md")
	if err != nil {
		return "", fmt.Errorf("topic %q not found, want one of %s: %w", topic, strings.Join(Topics(), ", "), err)
	}
	return string(content), nil
}

// GetTopics returns the content of several topics, one after the other.
func GetTopics(topics ...string) (string, error) {
	var b bytes.Buffer
	for _, topic := range topics {
		content, err := GetTopic(topic)
		if err != nil {
			return "", err
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Topics returns the names of all the topics but the readme, sorted.
func Topics() []string {
	names, _ := fs.Glob(docs, "*.md")
	var topics []string
	for _, name := range names {
		if topic := strings.TrimSuffix(name, ".md"); topic != readme {
			topics = append(topics, topic)
		}
	}
	slices.Sort(topics)
	return topics
}

// Title returns the first heading of a topic.
func Title(topic string) string {
	content, err := GetTopic(topic)
	if err != nil {
		return ""
	}
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		if line := sc.Text(); strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	return ""
}
