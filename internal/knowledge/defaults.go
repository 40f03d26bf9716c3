package knowledge

// DefaultCatalog returns the built-in demo businesses used when no record is
// stored for a slug. Demo entries carry no contact email on purpose: nothing
// should be dispatched on behalf of a business nobody registered.
func DefaultCatalog() map[string]*KnowledgeBase {
	return map[string]*KnowledgeBase{
		"salon-demo": {
			BusinessName: "Salon Lumière",
			BusinessType: "salon de coiffure",
			Timezone:     "Europe/Paris",
			HoursText:    "Du mardi au samedi, de 9h à 19h",
			Services: []Service{
				{Name: "Coupe homme", PriceMinor: 2200, DurationMinutes: 30},
				{Name: "Coupe femme", PriceMinor: 4500, DurationMinutes: 60},
				{Name: "Coloration", PriceMinor: 6500, DurationMinutes: 90},
				{Name: "Brushing", PriceMinor: 3000, DurationMinutes: 45},
			},
			FAQ: []FAQEntry{
				{Question: "Acceptez-vous la carte bancaire ?", Answer: "Oui, nous acceptons la carte bancaire et les espèces."},
				{Question: "Faut-il prendre rendez-vous ?", Answer: "Le rendez-vous est conseillé, mais nous acceptons aussi les visites sans rendez-vous selon disponibilité."},
			},
		},
		"bistro-demo": {
			BusinessName: "Bistro du Marché",
			BusinessType: "restaurant",
			Timezone:     "Europe/Paris",
			HoursText:    "Du lundi au samedi, service de 12h à 14h30 et de 19h à 22h30",
			Services: []Service{
				{Name: "Déjeuner", DurationMinutes: 90},
				{Name: "Dîner", DurationMinutes: 120},
				{Name: "Brunch du samedi", PriceMinor: 2800, DurationMinutes: 120},
			},
			FAQ: []FAQEntry{
				{Question: "Proposez-vous des plats végétariens ?", Answer: "Oui, la carte propose toujours au moins deux plats végétariens."},
				{Question: "Peut-on privatiser la salle ?", Answer: "La salle du fond se privatise pour les groupes à partir de 12 personnes, sur demande."},
			},
		},
	}
}
