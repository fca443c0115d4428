// Package catalog ships a starter set of chore and reward templates and
// imports them into a family, skipping anything the family already has.
package catalog

import (
	"time"

	"github.com/oakhollow/hearth/internal/model"
)

// ChoreItem is one starter chore definition.
type ChoreItem struct {
	Title       string
	Description string
	TimeOfDay   model.TimeOfDay
	BucksReward int
	Required    bool
	Frequency   model.Frequency
	DaysOfWeek  []time.Weekday
}

// RewardItem is one starter reward definition.
type RewardItem struct {
	Title       string
	Description string
	BucksPrice  int
	Category    model.RewardCategory
	Quantity    int
}

// DefaultChores is the built-in chore catalog. The same title may appear in
// several time-of-day buckets; the (title, time of day) pair is the identity
// the importer dedupes on.
var DefaultChores = []ChoreItem{
	{Title: "Brush teeth", TimeOfDay: model.Morning, BucksReward: 1, Required: true, Frequency: model.FreqDaily},
	{Title: "Brush teeth", TimeOfDay: model.Evening, BucksReward: 1, Required: true, Frequency: model.FreqDaily},
	{Title: "Make bed", TimeOfDay: model.Morning, BucksReward: 1, Frequency: model.FreqDaily},
	{Title: "Get dressed", TimeOfDay: model.Morning, BucksReward: 1, Required: true, Frequency: model.FreqDaily},
	{Title: "Pack school bag", TimeOfDay: model.Morning, BucksReward: 1, Frequency: model.FreqWeekdays},
	{Title: "Feed the pet", TimeOfDay: model.Morning, BucksReward: 2, Frequency: model.FreqDaily},
	{Title: "Set the table", TimeOfDay: model.Evening, BucksReward: 2, Frequency: model.FreqDaily},
	{Title: "Clear the table", TimeOfDay: model.Evening, BucksReward: 2, Frequency: model.FreqDaily},
	{Title: "Homework", TimeOfDay: model.Afternoon, BucksReward: 3, Required: true, Frequency: model.FreqWeekdays},
	{Title: "Tidy bedroom", TimeOfDay: model.Afternoon, BucksReward: 3, Frequency: model.FreqWeekly},
	{Title: "Take out trash", TimeOfDay: model.Evening, BucksReward: 2, Frequency: model.FreqWeekly},
	{Title: "Put away laundry", TimeOfDay: model.Anytime, BucksReward: 3, Frequency: model.FreqWeekly},
	{Title: "Water the plants", TimeOfDay: model.Anytime, BucksReward: 2, Frequency: model.FreqAsNeeded},
	{Title: "Help with dishes", TimeOfDay: model.Evening, BucksReward: 3, Frequency: model.FreqAsNeeded},
}

// DefaultRewards is the built-in reward catalog, deduped on
// (title, category).
var DefaultRewards = []RewardItem{
	{Title: "30 minutes extra screen time", Category: model.CategoryPrivileges, BucksPrice: 10, Quantity: model.UnlimitedQuantity},
	{Title: "Stay up 30 minutes late", Category: model.CategoryPrivileges, BucksPrice: 12, Quantity: model.UnlimitedQuantity},
	{Title: "Pick tonight's dinner", Category: model.CategoryPrivileges, BucksPrice: 15, Quantity: model.UnlimitedQuantity},
	{Title: "Skip one chore", Category: model.CategoryPrivileges, BucksPrice: 20, Quantity: model.UnlimitedQuantity},
	{Title: "Small toy", Category: model.CategoryItems, BucksPrice: 25, Quantity: model.UnlimitedQuantity},
	{Title: "New book", Category: model.CategoryItems, BucksPrice: 20, Quantity: model.UnlimitedQuantity},
	{Title: "Art supplies", Category: model.CategoryItems, BucksPrice: 15, Quantity: model.UnlimitedQuantity},
	{Title: "Ice cream trip", Category: model.CategoryActivities, BucksPrice: 15, Quantity: model.UnlimitedQuantity},
	{Title: "Movie night with snacks", Category: model.CategoryActivities, BucksPrice: 20, Quantity: model.UnlimitedQuantity},
	{Title: "Trip to the park", Category: model.CategoryActivities, BucksPrice: 10, Quantity: model.UnlimitedQuantity},
	{Title: "Have a friend over", Category: model.CategoryActivities, BucksPrice: 18, Quantity: model.UnlimitedQuantity},
	{Title: "Day trip of your choice", Category: model.CategorySpecialEvents, BucksPrice: 50, Quantity: 2},
	{Title: "Sleepover party", Category: model.CategorySpecialEvents, BucksPrice: 60, Quantity: 1},
}
