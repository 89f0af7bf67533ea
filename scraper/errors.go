package scraper

import "errors"

// ErrNoPrice is returned when no selector yields a positive price
var ErrNoPrice = errors.New("no price found on page")

// BotWallError is returned for block and CAPTCHA pages
type BotWallError struct {
	Reason string
}

func (e *BotWallError) Error() string {
	return "bot wall detected: " + e.Reason
}
