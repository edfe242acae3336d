package scraper

import "strings"

// extractRule is one "look here" step: a CSS selector, plus the attribute to
// read (empty means the element text). Rules for a field are tried in order
// and the first non-empty result wins.
type extractRule struct {
	selector string
	attr     string
}

// fieldRules are the ordered fallback chains for each logical field of a
// platform. Adding a merchant is a data change here, not a control-flow one.
type fieldRules struct {
	name          []extractRule
	currentPrice  []extractRule
	originalPrice []extractRule
	image         []extractRule
	rating        []extractRule
	reviewCount   []extractRule
}

const platformGeneric = "generic"

// platformHosts maps host suffixes to platform keys.
var platformHosts = map[string]string{
	"amazon.in":    "amazon",
	"amazon.com":   "amazon",
	"flipkart.com": "flipkart",
	"myntra.com":   "myntra",
}

// detectPlatform picks the selector table for a canonical URL's host.
// Unrecognized hosts fall back to the generic meta-tag chain.
func detectPlatform(host string) string {
	host = strings.ToLower(host)
	for suffix, platform := range platformHosts {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return platform
		}
	}
	return platformGeneric
}

// Structured page metadata (og:/itemprop/price blocks) always ranks above
// free-text phrases, so every chain starts with the most structured source
// the platform offers and ends at its loosest.
var platformRules = map[string]fieldRules{
	"amazon": {
		name: []extractRule{
			{selector: "#productTitle"},
			{selector: "#title span"},
			{selector: "meta[property='og:title']", attr: "content"},
		},
		currentPrice: []extractRule{
			{selector: "#corePriceDisplay_desktop_feature_div span.a-price:not(.a-text-price) span.a-offscreen"},
			{selector: "span.a-price:not(.a-text-price) span.a-offscreen"},
			{selector: "#priceblock_dealprice"},
			{selector: "#priceblock_ourprice"},
		},
		originalPrice: []extractRule{
			{selector: "span.a-price.a-text-price span.a-offscreen"},
			{selector: "span.priceBlockStrikePriceString"},
			{selector: "#listPrice"},
		},
		image: []extractRule{
			{selector: "#landingImage", attr: "data-old-hires"},
			{selector: "#landingImage", attr: "src"},
			{selector: "#imgBlkFront", attr: "src"},
			{selector: "meta[property='og:image']", attr: "content"},
		},
		rating: []extractRule{
			{selector: "span[data-hook='rating-out-of-text']"},
			{selector: "#acrPopover span.a-icon-alt"},
			{selector: "span.a-icon-alt"},
		},
		reviewCount: []extractRule{
			{selector: "#acrCustomerReviewText"},
			{selector: "span[data-hook='total-review-count']"},
		},
	},
	"flipkart": {
		name: []extractRule{
			{selector: "span.B_NuCI"},
			{selector: "h1.yhB1nd"},
			{selector: "meta[property='og:title']", attr: "content"},
		},
		currentPrice: []extractRule{
			{selector: "div._30jeq3._16Jk6d"},
			{selector: "div._30jeq3"},
			{selector: "meta[itemprop='price']", attr: "content"},
		},
		originalPrice: []extractRule{
			{selector: "div._3I9_wc._2p6lqe"},
			{selector: "div._3I9_wc"},
		},
		image: []extractRule{
			{selector: "img._396cs4"},
			{selector: "img._2r_T1I"},
			{selector: "meta[property='og:image']", attr: "content"},
		},
		rating: []extractRule{
			{selector: "div._3LWZlK"},
		},
		reviewCount: []extractRule{
			{selector: "span._2_R_DZ"},
		},
	},
	"myntra": {
		name: []extractRule{
			{selector: "h1.pdp-name"},
			{selector: "h1.pdp-title"},
			{selector: "meta[property='og:title']", attr: "content"},
		},
		currentPrice: []extractRule{
			{selector: "span.pdp-price strong"},
			{selector: "span.pdp-price"},
		},
		originalPrice: []extractRule{
			{selector: "span.pdp-mrp s"},
			{selector: "span.pdp-mrp"},
		},
		image: []extractRule{
			{selector: "div.image-grid-image", attr: "style"},
			{selector: "meta[property='og:image']", attr: "content"},
		},
		rating: []extractRule{
			{selector: "div.index-overallRating div"},
		},
		reviewCount: []extractRule{
			{selector: "div.index-ratingsCount"},
		},
	},
	platformGeneric: {
		name: []extractRule{
			{selector: "meta[property='og:title']", attr: "content"},
			{selector: "h1[itemprop='name']"},
			{selector: "title"},
			{selector: "h1"},
		},
		currentPrice: []extractRule{
			{selector: "meta[property='product:price:amount']", attr: "content"},
			{selector: "meta[itemprop='price']", attr: "content"},
			{selector: "[itemprop='price']"},
			{selector: ".sale-price"},
			{selector: ".price"},
		},
		originalPrice: []extractRule{
			{selector: "meta[property='product:original_price:amount']", attr: "content"},
			{selector: ".regular-price"},
			{selector: ".original-price"},
			{selector: "del"},
			{selector: "s"},
		},
		image: []extractRule{
			{selector: "meta[property='og:image']", attr: "content"},
			{selector: "img[itemprop='image']", attr: "src"},
		},
		rating: []extractRule{
			{selector: "meta[itemprop='ratingValue']", attr: "content"},
			{selector: "[itemprop='ratingValue']"},
		},
		reviewCount: []extractRule{
			{selector: "meta[itemprop='reviewCount']", attr: "content"},
			{selector: "[itemprop='reviewCount']"},
		},
	},
}
