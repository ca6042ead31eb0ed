package merge

// Totals is the reporting view of a finished reconciliation.
type Totals struct {
	// CollectedBytes repeats Result.CollectedBytes.
	CollectedBytes uint64
	// OriginalBytes is the root original size: everything the source
	// produced, before trimming.
	OriginalBytes uint64
	// UploadedBytes is the root trimmed size: what the assembled
	// directory still holds to hand on.
	UploadedBytes uint64
	// Throttled reports that trimming changed the root total, meaning
	// the assembled directory no longer carries everything produced.
	Throttled bool
}

// TotalsOf derives the reporting totals from a reconciliation result.
func TotalsOf(result Result) Totals {
	root := result.Root
	return Totals{
		CollectedBytes: result.CollectedBytes,
		OriginalBytes:  root.Original,
		UploadedBytes:  root.TrimmedSize(),
		Throttled:      root.Original != root.TrimmedSize(),
	}
}
