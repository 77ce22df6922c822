package shopify

import (
	"net/url"
	"strings"
)

// nextPageToken extracts the page_info token from the rel="next" entry of a
// Link response header. Returns an empty string when there is no next page.
//
// The header looks like:
//
//	<https://shop.myshopify.com/admin/api/2024-01/orders.json?page_info=abc&limit=250>; rel="next"
func nextPageToken(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}

	for _, part := range strings.Split(linkHeader, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}

		isNext := false
		for _, seg := range segments[1:] {
			if strings.TrimSpace(seg) == `rel="next"` {
				isNext = true
				break
			}
		}
		if !isNext {
			continue
		}

		rawURL := strings.TrimSpace(segments[0])
		rawURL = strings.TrimPrefix(rawURL, "<")
		rawURL = strings.TrimSuffix(rawURL, ">")

		u, err := url.Parse(rawURL)
		if err != nil {
			continue
		}
		return u.Query().Get("page_info")
	}

	return ""
}
