// Package api contains the JSON contracts of the Partner Price Comp HTTP API.
// Version v1 represents the current stable API version.
package api

import "time"

// Run endpoints
const (
	RunsPath          = "/api/pricecomp/runs"
	LatestRunPath     = RunsPath + "/latest"
	LatestArchivePath = LatestRunPath + "/archive"
)

// UploadField is the multipart form field carrying the listings file
const UploadField = "file"

// PartnerCount is one row of the partner summary
type PartnerCount struct {
	PartnerID   string `json:"partner_id"`
	PartnerName string `json:"partner_name"`
	SKUCount    int    `json:"nc_nco_sku_count"`
}

// ArchiveInfo describes the downloadable archive of a run
type ArchiveInfo struct {
	Filename    string `json:"filename"`
	MIMEType    string `json:"mime_type"`
	SizeBytes   int    `json:"size_bytes"`
	DownloadURL string `json:"download_url"`
}

// RunResponse is returned by POST /api/pricecomp/runs and
// GET /api/pricecomp/runs/latest
type RunResponse struct {
	SourceFilename string         `json:"source_filename"`
	GeneratedAt    time.Time      `json:"generated_at"`
	FilteredRows   int            `json:"filtered_rows"`
	PartnerCount   int            `json:"partner_count"`
	TopPartners    []PartnerCount `json:"top_partners"`
	Summary        []PartnerCount `json:"summary"`
	Archive        ArchiveInfo    `json:"archive"`
	Warnings       []string       `json:"warnings"`
}
