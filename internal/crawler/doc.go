// Package crawler holds the job-listing crawl orchestrator together with the
// record types, error taxonomy, and collaborator interfaces shared by the
// extraction, harvesting, and export packages.
package crawler
