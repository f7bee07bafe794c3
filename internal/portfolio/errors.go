package portfolio

import "errors"

var (
	// ErrNoSymbolsLoaded means the symbol index is empty and must be rebuilt first.
	ErrNoSymbolsLoaded = errors.New("no symbols loaded, rebuild the symbol index first")
	// ErrEmptyInput means no line of an upload survived validation.
	ErrEmptyInput = errors.New("portfolio upload contains no valid lines")
	// ErrEmptyPortfolio means there is nothing to summarize.
	ErrEmptyPortfolio = errors.New("portfolio is empty, upload a portfolio file first")
)
