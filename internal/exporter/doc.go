// Package exporter writes computed fund series as reports and reads them back.
//
// FundCSVSink writes one <code>.csv per fund (Date, NAV and every configured
// statistic, four decimals, empty cells where a statistic is undefined) plus
// fund_names.csv. XLSXSink writes a single workbook with the latest values of
// every fund. Both implement Sink, as do the database sinks in storage.
package exporter
