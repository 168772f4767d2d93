// Package instagram provides two posting paths to Instagram: the official
// Meta Graph API for business accounts (the recommended way to automate
// posting) and an unofficial session-based client driving the web login
// flow for personal accounts.
//
// The Graph API publish is a two-phase protocol: a media object is created
// from a public image URL, Instagram is given time to process it, then the
// object is published. Both phases must return an ID for the post to count
// as published.
package instagram
