package dataprocessing

// ParseStatistics counts what happened to the lines of the feed.
type ParseStatistics struct {
	Lines        int
	Observations int
	Skipped      int
	Dropped      int
	Filtered     int
}

// Add accumulates other into s.
func (s *ParseStatistics) Add(other ParseStatistics) {
	s.Lines += other.Lines
	s.Observations += other.Observations
	s.Skipped += other.Skipped
	s.Dropped += other.Dropped
	s.Filtered += other.Filtered
}

// FillStatistics represents forward-fill operation statistics.
type FillStatistics struct {
	TotalRecords       int
	ObservedRecords    int
	ForwardFilledCount int
	FundsProcessed     int
}

// Add accumulates other into s.
func (s *FillStatistics) Add(other FillStatistics) {
	s.TotalRecords += other.TotalRecords
	s.ObservedRecords += other.ObservedRecords
	s.ForwardFilledCount += other.ForwardFilledCount
	s.FundsProcessed += other.FundsProcessed
}
