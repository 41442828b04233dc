// Package dataprocessing turns AMFI NAV history files into forward-filled
// fund series.
//
// # Architecture
//
//  1. FeedParser reads semicolon separated NAV lines, dropping headers,
//     scheme category lines and unparseable values
//  2. Collector groups observations per scheme code and counts duplicates
//  3. ForwardFillProcessor fills every calendar day between a fund's first
//     and last observation and builds a series.Store
//
// Large feeds are processed in batches: ScanCodes lists the scheme codes in
// a first pass, and Batches splits them so that each pass parses only the
// funds of one batch.
//
// # Usage
//
//	parser := dataprocessing.NewFeedParser(logger)
//	collector := dataprocessing.NewCollector()
//	stats, err := parser.ParseFiles(ctx, paths, collector.Add)
//	if err != nil {
//		return err
//	}
//	store, fill, err := dataprocessing.NewForwardFillProcessor(logger).BuildStore(ctx, collector)
package dataprocessing
