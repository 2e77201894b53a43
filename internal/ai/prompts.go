package ai

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/exodash/internal/planet"
	"github.com/KaramelBytes/exodash/internal/reference"
)

// Fallback texts used when the model answers with nothing usable.
const (
	NoNarrative     = "No narrative generated."
	NoSearchResults = "No search results found."
)

// FallbackImageDescription is used when the description step fails.
func FallbackImageDescription(name string) string {
	return "A realistic planet in space named " + name
}

// FormatProperties renders the property line embedded in prompts.
func FormatProperties(r planet.Record) string {
	return fmt.Sprintf("Mass: %s Earths, Radius: %s Earths, Orbital Period: %s days, Temp: %sK, Star: %s (%sK)",
		num(r.Mass), num(r.Radius), num(r.OrbitalPeriod), num(r.EquilibriumTemp), r.HostStar, num(r.StellarTemp))
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// NarrativePrompt asks for a short scientific narrative, pointing the model at the
// discovery paper when one is known.
func NarrativePrompt(r planet.Record, ref *reference.Reference) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short, engaging, and scientific narrative about the exoplanet %s.\n", r.Name)
	fmt.Fprintf(&b, "Here are its properties from the NASA archive: %s.\n", FormatProperties(r))
	b.WriteString("Focus on what makes it unique compared to Earth or other planets.")
	if ref != nil && ref.URL != "" {
		fmt.Fprintf(&b, "\n\nIMPORTANT: The planet is discussed in the scientific reference titled %q.\n", ref.Title)
		fmt.Fprintf(&b, "Please use Google Search to find information about this specific paper or discovery (URL: %s) and incorporate key findings from it into the narrative.\n", ref.URL)
		b.WriteString("Verify the details from the search results to ensure accuracy.")
	}
	b.WriteString("\n\nKeep the narrative under 200 words.")
	return b.String()
}

// SearchPrompt asks for recent findings about the planet.
func SearchPrompt(r planet.Record) string {
	return fmt.Sprintf("What are the latest scientific discoveries or interesting facts about the exoplanet %s?", r.Name)
}

// ImageDescriptionPrompt asks for a visual description tuned for an image model.
func ImageDescriptionPrompt(r planet.Record, ref *reference.Reference) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a highly detailed, vivid, and scientifically grounded visual description for the exoplanet %s based on these properties: %s.", r.Name, FormatProperties(r))
	if ref != nil && ref.URL != "" {
		fmt.Fprintf(&b, "\n\nIMPORTANT: The planet is discussed in the scientific reference titled %q.\n", ref.Title)
		fmt.Fprintf(&b, "Please use Google Search to find specific visual details mentioned in this paper or discovery (URL: %s) such as color, atmosphere composition, cloud presence, surface texture, or potential artistic interpretations discussed in the findings.\n", ref.URL)
		b.WriteString("Incorporate these specific visual findings into the description.")
	}
	b.WriteString("\n\nDescribe the appearance of the planet, its surface (if applicable) or atmosphere, cloud layers, lighting from its host star, and any unique features.\n")
	b.WriteString("The description should be optimized for an AI image generator. Keep it under 100 words.")
	return b.String()
}

// ImagePrompt wraps a visual description for the image model.
func ImagePrompt(description string) string {
	return fmt.Sprintf("A realistic and scientifically grounded artistic rendering of the exoplanet. Description: %s.\n"+
		"Cinematic lighting, high resolution, photorealistic, 8k, space background.", strings.TrimSpace(description))
}
