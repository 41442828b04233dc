// Package files finds NAV history files and fund reports on disk and writes
// reports atomically.
//
//	discovery := files.NewDiscovery(paths.BaseDir, ".txt", ".csv")
//	navFiles, err := discovery.FindNAVFiles(paths.InputDir)
package files
