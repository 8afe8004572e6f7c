package domain

// Purchase is one line of a customer's order history.
type Purchase struct {
	Item      string
	Count     int
	LastOrder string
}

// Customer is a flat-file customer record.
type Customer struct {
	ID          string
	Token       string
	Name        string
	Preferences []string
	History     []Purchase
}

// TopPreferences returns at most n preferences.
func (c *Customer) TopPreferences(n int) []string {
	if c == nil || n <= 0 {
		return nil
	}
	if len(c.Preferences) < n {
		n = len(c.Preferences)
	}
	return c.Preferences[:n]
}

// Store is a nearby retail location.
type Store struct {
	Name      string
	DistanceM int
	Inventory []string
	Offers    []string
}

// DefaultStore is used when no store file is configured.
func DefaultStore() Store {
	return Store{
		Name:      "StarBrew (demo)",
		DistanceM: 50,
		Inventory: []string{"Hot Chocolate", "Latte", "Iced Latte"},
		Offers:    []string{"HOT10", "WINTER5"},
	}
}

// ReplyRequest is an inbound customer message.
type ReplyRequest struct {
	// UserText is the raw message, possibly containing PII.
	UserText string

	// UserToken identifies the customer record, optional.
	UserToken string
}

// ReplyResponse is the display-safe reply.
type ReplyResponse struct {
	// Reply has every token rendered as a partial mask.
	Reply string

	// Sources lists the chunks used as context.
	Sources []ChunkMetadata

	// Offline is true when the deterministic fallback generator answered.
	Offline bool
}
