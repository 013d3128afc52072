package resolver

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadCookieFile reads a Netscape-format cookie file and returns the
// cookies suitable for seeding a session jar. Verification-gated shares
// accept an account's ndus cookie this way.
func LoadCookieFile(path string) ([]*http.Cookie, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cookie file: %w", err)
	}
	defer file.Close()

	var cookies []*http.Cookie
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cookie, err := parseNetscapeCookieLine(line)
		if err != nil {
			return nil, fmt.Errorf("cookie file line %d: %w", lineNum, err)
		}
		cookies = append(cookies, cookie)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	return cookies, nil
}

// parseNetscapeCookieLine parses one tab-separated line:
// domain flag path secure expiration name value
func parseNetscapeCookieLine(line string) (*http.Cookie, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 7 {
		return nil, fmt.Errorf("expected 7 fields, got %d", len(fields))
	}

	var expires time.Time
	if fields[4] != "0" {
		timestamp, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid expiration timestamp: %w", err)
		}
		expires = time.Unix(timestamp, 0)
	}

	return &http.Cookie{
		Name:    fields[5],
		Value:   fields[6],
		Domain:  fields[0],
		Path:    fields[2],
		Expires: expires,
		Secure:  fields[3] == "TRUE",
	}, nil
}
