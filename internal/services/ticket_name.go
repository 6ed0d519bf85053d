package services

import (
	"regexp"
	"strings"
)

var (
	ticketWordPrefix = regexp.MustCompile(`(?i)^(ticket|kaartje|billet|biglietto)[\s:_-]*`)
	ticketWordSuffix = regexp.MustCompile(`(?i)[\s:_-]*(ticket|kaartje|billet|biglietto)$`)
	nameSeparators   = regexp.MustCompile(`[\s\-_]+`)
)

const shortTicketNameLength = 20

// ShortTicketName condenses a ticket type name into the label printed next
// to its QR code, e.g. "Ticket - Early Bird" becomes "EARLYBIRD"
func ShortTicketName(name string) string {
	short := ticketWordPrefix.ReplaceAllString(name, "")
	short = ticketWordSuffix.ReplaceAllString(short, "")
	short = nameSeparators.ReplaceAllString(short, "")

	if runes := []rune(short); len(runes) > shortTicketNameLength {
		short = string(runes[:shortTicketNameLength])
	}
	return strings.ToUpper(short)
}
