// Package recipe provides offline recipe generators: a small built-in
// catalog and the fixed fallback recipe served when generation fails.
package recipe

import (
	"context"
	"fmt"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
	"github.com/Sanny1998/Virtual-chef/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeGenerator = (*CatalogGenerator)(nil)

// entry is a catalog recipe tagged with its home region and heat.
type entry struct {
	region domain.Region
	spice  int // 0-10, rough heat of the dish as written
	recipe domain.Recipe
}

// CatalogGenerator picks a built-in recipe matching the user's region that
// avoids their allergies and dislikes. It is used when no text-generation
// service is configured.
type CatalogGenerator struct {
	entries []entry
	log     *logger.Logger
}

// NewCatalogGenerator creates a generator preloaded with built-in recipes.
func NewCatalogGenerator(log *logger.Logger) *CatalogGenerator {
	g := &CatalogGenerator{log: log}
	g.seed()
	return g
}

// Generate returns the closest catalog recipe for prefs. It prefers the
// user's region, then the dish whose heat is nearest the requested spice
// level. Dishes containing an avoided ingredient are never returned; if
// nothing qualifies it returns domain.ErrNotFound.
func (g *CatalogGenerator) Generate(ctx context.Context, prefs domain.Preferences) (*domain.Recipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var best *entry
	bestScore := -1
	for i := range g.entries {
		e := &g.entries[i]
		if term, bad := avoids(&prefs, e.recipe); bad {
			g.log.Debug("catalog: skipping %q (mentions %s)", e.recipe.Title, term)
			continue
		}
		score := 20 - abs(e.spice-prefs.SpiceLevel)
		if e.region == prefs.Region {
			score += 100
		}
		if score > bestScore {
			best, bestScore = e, score
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no catalog recipe avoids %v %v: %w", prefs.Allergies, prefs.Dislikes, domain.ErrNotFound)
	}

	r := clone(best.recipe)
	r.Title = fmt.Sprintf("%s (serves %d)", r.Title, prefs.NumberOfPeople)
	if prefs.SpiceLevel >= 7 && best.spice < prefs.SpiceLevel {
		r.Tips = append(r.Tips, "Add extra green chillies or a pinch of chilli powder for more heat.")
	}
	if prefs.SpiceLevel <= 2 && best.spice > prefs.SpiceLevel {
		r.Tips = append(r.Tips, "Halve the chilli and finish with a spoon of yoghurt or cream to keep it mild.")
	}
	g.log.Debug("catalog: picked %q for region=%s spice=%d", r.Title, prefs.Region, prefs.SpiceLevel)
	return &r, nil
}

// Len returns the number of catalog recipes.
func (g *CatalogGenerator) Len() int { return len(g.entries) }

func avoids(prefs *domain.Preferences, r domain.Recipe) (string, bool) {
	for _, ing := range r.Ingredients {
		if term, ok := prefs.Avoids(ing); ok {
			return term, true
		}
	}
	return "", false
}

func clone(r domain.Recipe) domain.Recipe {
	r.Ingredients = append([]string(nil), r.Ingredients...)
	r.Steps = append([]domain.Step(nil), r.Steps...)
	r.Tips = append([]string(nil), r.Tips...)
	return r
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Fallback is served whenever generation fails or times out.
func Fallback() *domain.Recipe {
	return &domain.Recipe{
		Title:        "Simple Tomato Curry",
		CulturalNote: "A comforting everyday curry cooked in homes across India, built on ripe tomatoes and onion.",
		Ingredients:  []string{"Tomatoes 500g", "Onion 1", "Salt", "Oil 2 tbsp"},
		Steps: []domain.Step{
			{Text: "Chop vegetables."},
			{Text: "Sauté onion.", TimerSeconds: 60, TimerLabel: "saute onion"},
			{Text: "Add tomatoes and simmer.", TimerSeconds: 300, TimerLabel: "simmer tomatoes"},
		},
		Tips: []string{"Use ripe tomatoes", "Add a pinch of sugar to balance acidity"},
	}
}

// seed populates the catalog with built-in recipes.
func (g *CatalogGenerator) seed() {
	g.entries = []entry{
		{domain.RegionNorth, 4, paneerButterMasala()},
		{domain.RegionNorth, 6, rajmaMasala()},
		{domain.RegionSouth, 7, sambar()},
		{domain.RegionEast, 3, alooPosto()},
		{domain.RegionWest, 5, kandaPoha()},
	}
	g.log.Debug("seeded %d catalog recipes", len(g.entries))
}

func paneerButterMasala() domain.Recipe {
	return domain.Recipe{
		Title:        "Paneer Butter Masala",
		CulturalNote: "A Punjabi dhaba classic: soft paneer in a buttery tomato gravy, usually eaten with naan.",
		Ingredients: []string{
			"Paneer 250g", "Tomatoes 4", "Onion 1", "Butter 2 tbsp", "Cream 3 tbsp",
			"Cashews 10", "Ginger-garlic paste 1 tbsp", "Kashmiri chilli powder 1 tsp",
			"Garam masala 1 tsp", "Kasuri methi 1 tsp", "Salt",
		},
		Steps: []domain.Step{
			{Text: "Soak the cashews in hot water while you chop onion and tomatoes."},
			{Text: "Melt butter, fry onion and ginger-garlic paste until soft.", TimerSeconds: 240, TimerLabel: "soften onion"},
			{Text: "Add tomatoes and cashews. Cook down until the tomatoes collapse.", TimerSeconds: 480, TimerLabel: "cook tomatoes"},
			{Text: "Blend the gravy smooth and return it to the pan with chilli powder and salt."},
			{Text: "Add paneer cubes and simmer gently.", TimerSeconds: 300, TimerLabel: "simmer paneer"},
			{Text: "Finish with cream, garam masala, and crushed kasuri methi."},
		},
		Tips: []string{
			"Do not boil after adding cream or it may split.",
			"Soak paneer in warm salted water for ten minutes to keep it soft.",
		},
	}
}

func rajmaMasala() domain.Recipe {
	return domain.Recipe{
		Title:        "Rajma Masala",
		CulturalNote: "Rajma chawal is Sunday lunch in much of North India, with the Jammu variety prized for flavour.",
		Ingredients: []string{
			"Kidney beans 1 cup, soaked overnight", "Onion 2", "Tomatoes 3",
			"Ginger-garlic paste 1 tbsp", "Cumin seeds 1 tsp", "Red chilli powder 1 tsp",
			"Coriander powder 2 tsp", "Garam masala 1 tsp", "Oil 2 tbsp", "Salt",
		},
		Steps: []domain.Step{
			{Text: "Pressure-cook the soaked beans with salt until very soft.", TimerSeconds: 900, TimerLabel: "cook rajma"},
			{Text: "Splutter cumin in oil, then brown the onion.", TimerSeconds: 420, TimerLabel: "brown onion"},
			{Text: "Add ginger-garlic paste, tomatoes and spice powders. Cook until oil separates.", TimerSeconds: 360, TimerLabel: "cook masala"},
			{Text: "Add beans with their water and simmer, mashing a few against the pan.", TimerSeconds: 600, TimerLabel: "simmer rajma"},
			{Text: "Finish with garam masala and serve with rice."},
		},
		Tips: []string{
			"Undercooked beans never soften in the gravy, so cook them fully first.",
			"Mashing a handful of beans thickens the gravy without cream.",
		},
	}
}

func sambar() domain.Recipe {
	return domain.Recipe{
		Title:        "Drumstick Sambar",
		CulturalNote: "Sambar is the everyday lentil stew of Tamil Nadu and Karnataka, eaten with rice, idli, or dosa.",
		Ingredients: []string{
			"Toor dal 1/2 cup", "Drumsticks 2", "Shallots 10", "Tomato 1", "Tamarind lime-sized ball",
			"Sambar powder 2 tbsp", "Mustard seeds 1 tsp", "Curry leaves 1 sprig",
			"Dried red chillies 2", "Asafoetida pinch", "Oil 1 tbsp", "Salt",
		},
		Steps: []domain.Step{
			{Text: "Pressure-cook the dal with turmeric until mushy.", TimerSeconds: 720, TimerLabel: "cook dal"},
			{Text: "Simmer drumsticks, shallots and tomato in tamarind water with salt.", TimerSeconds: 600, TimerLabel: "simmer vegetables"},
			{Text: "Stir in sambar powder and the mashed dal. Simmer together.", TimerSeconds: 300, TimerLabel: "simmer sambar"},
			{Text: "Temper mustard seeds, red chillies, curry leaves and asafoetida in oil and pour over."},
		},
		Tips: []string{
			"Sambar thickens as it cools, so keep it slightly loose.",
			"Fresh curry leaves make a big difference.",
		},
	}
}

func alooPosto() domain.Recipe {
	return domain.Recipe{
		Title:        "Aloo Posto",
		CulturalNote: "A Bengali home favourite where potatoes are cooked in a paste of white poppy seeds.",
		Ingredients: []string{
			"Potatoes 4", "White poppy seeds 4 tbsp", "Green chillies 2", "Mustard oil 2 tbsp",
			"Nigella seeds 1/2 tsp", "Turmeric pinch", "Salt",
		},
		Steps: []domain.Step{
			{Text: "Soak the poppy seeds, then grind with green chillies to a smooth paste.", TimerSeconds: 600, TimerLabel: "soak poppy seeds"},
			{Text: "Heat mustard oil until it smokes lightly, then add nigella seeds."},
			{Text: "Fry cubed potatoes with turmeric and salt, covered.", TimerSeconds: 600, TimerLabel: "fry potatoes"},
			{Text: "Stir in the poppy paste with a splash of water and cook until dry.", TimerSeconds: 240, TimerLabel: "cook posto"},
		},
		Tips: []string{
			"Drizzle raw mustard oil on top before serving for a sharp finish.",
		},
	}
}

func kandaPoha() domain.Recipe {
	return domain.Recipe{
		Title:        "Kanda Poha",
		CulturalNote: "Maharashtra's breakfast staple of flattened rice with onions, often served to guests with tea.",
		Ingredients: []string{
			"Thick poha 2 cups", "Onion 1", "Green chillies 2", "Peanuts 2 tbsp", "Mustard seeds 1 tsp",
			"Curry leaves 1 sprig", "Turmeric 1/2 tsp", "Lemon 1/2", "Sugar 1 tsp", "Oil 2 tbsp", "Salt",
		},
		Steps: []domain.Step{
			{Text: "Rinse the poha and let it drain and soften.", TimerSeconds: 120, TimerLabel: "soak poha"},
			{Text: "Fry peanuts in oil until crisp, then set aside."},
			{Text: "Temper mustard seeds and curry leaves, then cook onion and chillies until soft.", TimerSeconds: 180, TimerLabel: "cook onion"},
			{Text: "Add turmeric, poha, salt and sugar. Toss and steam covered on low heat.", TimerSeconds: 120, TimerLabel: "steam poha"},
			{Text: "Finish with lemon juice, peanuts and coriander."},
		},
		Tips: []string{
			"Do not over-soak the poha or it turns mushy.",
		},
	}
}
