package catalog

import "sjsage522/shopcollagebot/services/publisher"

const (
	// CollageFileName is the attachment name of every collage
	CollageFileName = "shop-collage.png"
	// PriceListFileName is the attachment name of the price list
	PriceListFileName = "shop-preise.txt"
)

// Announcement is the fixed copy sent with a dispatch pass
type Announcement struct {
	Caption string
	Promo   publisher.Promo
}

// DefaultAnnouncement returns the shop's caption and ordering terms
func DefaultAnnouncement() Announcement {
	return Announcement{
		Caption: "🛒 Hier ist die aktuelle Shop-Auswahl:",
		Promo: publisher.Promo{
			Title:       "Jixx's Market",
			Description: "Zahlung nur per Paypal oder Krypto-Währung möglich.",
			Color:       0x0099ff,
			Fields: []publisher.PromoField{
				{Name: "Zahlungsmethoden", Value: "💳 Paypal, 💰 Krypto", Inline: true},
				{Name: "Mindestbestellwert", Value: "25 €", Inline: true},
			},
			Footer: "Vielen Dank für deinen Einkauf!",
		},
	}
}

// PriceListFile renders the catalog as a text attachment
func (c *Catalog) PriceListFile() publisher.File {
	return publisher.File{
		Name:        PriceListFileName,
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(c.Render()),
	}
}
