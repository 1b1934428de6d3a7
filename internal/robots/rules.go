package robots

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
)

// RuleSet is the cached outcome of one robots.txt fetch. A nil RuleSet
// means no usable rules were found and everything is allowed.
type RuleSet interface {
	Allows(path string) bool
	CrawlDelay() time.Duration
}

// Rules is the line-oriented rule set produced by ParseRules.
type Rules struct {
	disallow []string
	delay    time.Duration
}

// ParseRules reads Disallow and Crawl-delay directives from a robots file.
// Directive names are case-sensitive and no user-agent scoping applies;
// every other line is ignored. Empty Disallow values and malformed delays
// are skipped.
func ParseRules(body []byte) *Rules {
	rules := &Rules{}
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Disallow:"):
			if prefix := strings.TrimSpace(strings.TrimPrefix(line, "Disallow:")); prefix != "" {
				rules.disallow = append(rules.disallow, prefix)
			}
		case strings.HasPrefix(line, "Crawl-delay:"):
			seconds, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Crawl-delay:")))
			if err == nil && seconds >= 0 {
				rules.delay = time.Duration(seconds) * time.Second
			}
		}
	}
	return rules
}

// Allows reports whether path avoids every disallowed prefix.
func (r *Rules) Allows(path string) bool {
	for _, prefix := range r.disallow {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// CrawlDelay returns the parsed Crawl-delay, or zero.
func (r *Rules) CrawlDelay() time.Duration {
	return r.delay
}

// Disallowed returns a copy of the disallowed prefixes.
func (r *Rules) Disallowed() []string {
	return append([]string(nil), r.disallow...)
}

// agentRules adapts a robotstxt group for the standard parsing mode.
type agentRules struct {
	group *robotstxt.Group
}

func parseStandard(body []byte, userAgent string) (RuleSet, error) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, err
	}
	group := data.FindGroup(userAgent)
	if group == nil {
		return nil, nil
	}
	return &agentRules{group: group}, nil
}

func (a *agentRules) Allows(path string) bool {
	return a.group.Test(path)
}

func (a *agentRules) CrawlDelay() time.Duration {
	return a.group.CrawlDelay
}
