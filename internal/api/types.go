package api

import "github.com/abszero/smartledger/internal/models"

// Wire representations of the domain models.

type personResponse struct {
	Sub       string   `json:"sub"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	Groups    []string `json:"groups"`
	Invites   []string `json:"invites"`
	CreatedAt int64    `json:"created_at"`
}

type groupResponse struct {
	ID           string                        `json:"id"`
	Name         string                        `json:"name"`
	Description  string                        `json:"description"`
	Admin        string                        `json:"admin"`
	Members      []string                      `json:"members"`
	Invites      []string                      `json:"invites"`
	Settings     models.GroupSettings          `json:"settings"`
	Ledger       map[string]float64            `json:"ledger"`
	Balances     map[string]map[string]float64 `json:"balances"`
	Transactions []string                      `json:"transactions"`
	CreatedAt    int64                         `json:"created_at"`
	UpdatedAt    int64                         `json:"updated_at"`
}

type transactionItemResponse struct {
	ItemID   string  `json:"item_id"`
	OwedBy   string  `json:"owed_by"`
	Quantity int     `json:"quantity"`
	ItemCost float64 `json:"item_cost"`
}

type transactionResponse struct {
	ID            string                    `json:"id"`
	GroupID       string                    `json:"group_id"`
	Title         string                    `json:"title"`
	Description   string                    `json:"description"`
	Vendor        string                    `json:"vendor"`
	WhoPaid       map[string]float64        `json:"who_paid"`
	Items         []transactionItemResponse `json:"items"`
	TotalPrice    float64                   `json:"total_price"`
	CreatedBy     string                    `json:"created_by"`
	ModifiedBy    string                    `json:"modified_by"`
	DatePurchased int64                     `json:"date_purchased"`
	DateCreated   int64                     `json:"date_created"`
	DateModified  int64                     `json:"date_modified"`
}

type itemResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	UsageCount  int     `json:"usage_count"`
}

func toPersonResponse(p *models.Person) personResponse {
	return personResponse{
		Sub:       p.Sub,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Groups:    p.Groups,
		Invites:   p.Invites,
		CreatedAt: p.CreatedAt,
	}
}

func toGroupResponse(g *models.Group) groupResponse {
	return groupResponse{
		ID:           g.ID,
		Name:         g.Name,
		Description:  g.Description,
		Admin:        g.Admin,
		Members:      g.Members,
		Invites:      g.Invites,
		Settings:     g.Settings,
		Ledger:       g.Ledger,
		Balances:     g.Balances,
		Transactions: g.Transactions,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func toTransactionResponse(t *models.Transaction) transactionResponse {
	items := make([]transactionItemResponse, len(t.Items))
	for i, line := range t.Items {
		items[i] = transactionItemResponse{
			ItemID:   line.ItemID,
			OwedBy:   line.OwedBy,
			Quantity: line.Quantity,
			ItemCost: line.ItemCost,
		}
	}
	return transactionResponse{
		ID:            t.ID,
		GroupID:       t.GroupID,
		Title:         t.Title,
		Description:   t.Description,
		Vendor:        t.Vendor,
		WhoPaid:       t.WhoPaid,
		Items:         items,
		TotalPrice:    t.TotalPrice,
		CreatedBy:     t.CreatedBy,
		ModifiedBy:    t.ModifiedBy,
		DatePurchased: t.DatePurchased,
		DateCreated:   t.DateCreated,
		DateModified:  t.DateModified,
	}
}

func toItemResponse(i *models.Item) itemResponse {
	return itemResponse{
		ID:          i.ID,
		Name:        i.Name,
		Description: i.Description,
		UnitPrice:   i.UnitPrice,
		UsageCount:  i.UsageCount,
	}
}
