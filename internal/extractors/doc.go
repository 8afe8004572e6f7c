// Package extractors turns corpus files into plain text.
//
// Extractors never fail loudly: an unreadable or malformed file yields an
// empty string and the index build skips it.
package extractors
