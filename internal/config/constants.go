package config

import "pricecomp/pkg/contracts"

// Application info
const (
	AppName    = "Partner Price Comp"
	AppVersion = contracts.Version
)

// StagingPrefix names the per-run staging directories
const StagingPrefix = "pricecomp"

// TopPartnersLimit is the number of partners offered for charting
const TopPartnersLimit = 10
