package config

// Application constants
const (
	AppName    = "navcli"
	AppVersion = "1.0.0"

	// Trailing windows in calendar days.
	OneYear    = 365
	ThreeYears = 3 * 365
	FiveYears  = 5 * 365

	// DefaultBatchSize bounds how many funds are held in memory at once.
	DefaultBatchSize = 2000
	DefaultWorkers   = 4

	// Report file names.
	FundNamesFile = "fund_names.csv"
	WorkbookFile  = "fund_statistics.xlsx"
	CSVDirName    = "csv"
	XLSXDirName   = "xlsx"

	// NAVFileExtensions are the input files picked up from the input directory.
	NAVFileExtensions = ".txt,.csv"
)
