// Package mockdata generates fake users, products and orders for the data endpoints.
package mockdata

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/statusservice/internal/infrastructure/clock"
)

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Age       int       `json:"age"`
	City      string    `json:"city"`
	Credits   float64   `json:"credits"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type Product struct {
	ID       int     `json:"id"`
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Rating   float64 `json:"rating"`
	Reviews  int     `json:"reviews"`
	InStock  int     `json:"inStock"`
}

type OrderItem struct {
	ProductID int     `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	ZipCode string `json:"zipCode"`
}

type Order struct {
	ID              int         `json:"id"`
	UserID          int         `json:"userId"`
	Items           []OrderItem `json:"items"`
	Total           float64     `json:"total"`
	Status          string      `json:"status"`
	ShippingAddress Address     `json:"shippingAddress"`
	CreatedAt       time.Time   `json:"createdAt"`
}

var (
	firstNames = []string{"Alice", "Bob", "Carol", "David", "Eve", "Frank", "Grace", "Heidi", "Ivan", "Judy", "Mallory", "Oscar", "Peggy", "Trent", "Victor", "Wendy"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Lopez", "Wilson", "Anderson", "Taylor"}
	cities     = []string{"New York", "London", "Tokyo", "Berlin", "Paris", "Sydney", "Toronto", "Singapore", "Madrid", "Seoul"}
	streets    = []string{"Main St", "Oak Ave", "Pine Rd", "Maple Dr", "Cedar Ln", "Elm St", "Lake View", "Hill Rd"}
	categories = []string{"Electronics", "Books", "Clothing", "Home", "Sports", "Toys", "Beauty", "Garden"}
	adjectives = []string{"Smart", "Classic", "Portable", "Deluxe", "Eco", "Ultra", "Compact", "Premium"}
	nouns      = []string{"Lamp", "Speaker", "Backpack", "Watch", "Notebook", "Blender", "Jacket", "Camera", "Chair", "Bottle"}
	statuses   = []string{"pending", "processing", "shipped", "delivered", "cancelled"}
)

const maxID = 99999

// Generator is safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	clock clock.Clock
}

// NewGenerator seeds a generator. Equal seeds give equal sequences.
func NewGenerator(seed uint64, clk clock.Clock) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), clock: clk}
}

func (g *Generator) Users(n int) []User {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]User, n)
	for i := range out {
		out[i] = g.user()
	}
	return out
}

func (g *Generator) Products(n int) []Product {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Product, n)
	for i := range out {
		out[i] = g.product()
	}
	return out
}

func (g *Generator) Orders(n int) []Order {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Order, n)
	for i := range out {
		out[i] = g.order()
	}
	return out
}

func (g *Generator) user() User {
	first, last := pick(g.rng, firstNames), pick(g.rng, lastNames)
	username := fmt.Sprintf("%s.%s%d", strings.ToLower(first), strings.ToLower(last), g.rng.IntN(1000))
	return User{
		ID:        g.id(),
		Username:  username,
		FirstName: first,
		LastName:  last,
		Name:      first + " " + last,
		Email:     username + "@example.com",
		Phone:     fmt.Sprintf("+1-555-%03d-%04d", g.rng.IntN(1000), g.rng.IntN(10000)),
		Age:       18 + g.rng.IntN(63),
		City:      pick(g.rng, cities),
		Credits:   round2(g.rng.Float64() * 10000),
		IsActive:  g.rng.IntN(10) < 8,
		CreatedAt: g.clock.Now().UTC().Add(-time.Duration(g.rng.IntN(365*24)) * time.Hour),
	}
}

func (g *Generator) product() Product {
	return Product{
		ID:       g.id(),
		SKU:      fmt.Sprintf("SKU-%06d", g.rng.IntN(1000000)),
		Name:     pick(g.rng, adjectives) + " " + pick(g.rng, nouns),
		Category: pick(g.rng, categories),
		Price:    round2(5 + g.rng.Float64()*995),
		Rating:   math.Round((1+g.rng.Float64()*4)*10) / 10,
		Reviews:  g.rng.IntN(5000),
		InStock:  g.rng.IntN(500),
	}
}

// Order returns one order carrying the given id.
func (g *Generator) Order(id int) Order {
	g.mu.Lock()
	defer g.mu.Unlock()
	o := g.order()
	o.ID = id
	return o
}

func (g *Generator) order() Order {
	items := make([]OrderItem, 1+g.rng.IntN(5))
	var total float64
	for i := range items {
		items[i] = OrderItem{
			ProductID: g.id(),
			Quantity:  1 + g.rng.IntN(5),
			Price:     round2(5 + g.rng.Float64()*495),
		}
		total += float64(items[i].Quantity) * items[i].Price
	}
	return Order{
		ID:     g.id(),
		UserID: g.id(),
		Items:  items,
		Total:  round2(total),
		Status: pick(g.rng, statuses),
		ShippingAddress: Address{
			Street:  fmt.Sprintf("%d %s", 1+g.rng.IntN(9999), pick(g.rng, streets)),
			City:    pick(g.rng, cities),
			ZipCode: fmt.Sprintf("%05d", g.rng.IntN(100000)),
		},
		CreatedAt: g.clock.Now().UTC().Add(-time.Duration(g.rng.IntN(90*24)) * time.Hour),
	}
}

// id draws a positive record identifier.
func (g *Generator) id() int {
	return 1 + g.rng.IntN(maxID)
}

func pick(r *rand.Rand, xs []string) string {
	return xs[r.IntN(len(xs))]
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
