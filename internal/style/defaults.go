package style

// Style names, in assignment order.
const (
	HardcoreTechno     = "HARDCORE TECHNO"
	BeachSunset        = "BEACH SUNSET"
	NeoY2K             = "NEO Y2K"
	StreetHypebeast    = "STREET HYPEBEAST"
	MinimalLuxury      = "MINIMAL LUXURY"
	FestivalFreeSpirit = "FESTIVAL FREE SPIRIT"
)

// DefaultStyles returns the six RAAVE "Colores del Sol" outfit themes.
// The order is part of the contract: reordering changes every assignment.
func DefaultStyles() []Descriptor {
	return []Descriptor{
		{
			Name: HardcoreTechno,
			PromptBlock: `**HARDCORE TECHNO**: Industrial rave look
- Black base with bold Colores del Sol color-blocking
- Harness-style straps, utility vest, or structured jacket
- Tech pants with straps/buckles, combat boots
- Hard-edged, angular patterns
- Dark + vibrant color contrast
- ACCESSORIES: Futuristic visor sunglasses or wraparound shades in orange/red tint`,
		},
		{
			Name: BeachSunset,
			PromptBlock: `**BEACH SUNSET**: Tropical rave vibes
- Flowy, lightweight fabrics in sunset gradients
- Open shirt or loose tank with sunset color flow (orange→yellow→purple)
- Comfortable shorts or linen pants
- Relaxed, breezy aesthetic
- Natural gradient transitions
- ACCESSORIES: Colorful bandana or headband with flower patterns`,
		},
		{
			Name: NeoY2K,
			PromptBlock: `**NEO Y2K**: Futuristic throwback
- Shiny/metallic fabrics in Colores del Sol colors
- Crop tops, low-rise pants, or chunky platform shoes
- Tech-meets-fashion aesthetic
- Holographic or reflective accents
- Bold 2000s silhouettes
- ACCESSORIES: Tiny oval sunglasses or colored lens glasses (pink/purple/yellow)`,
		},
		{
			Name: StreetHypebeast,
			PromptBlock: `**STREET HYPEBEAST**: Urban rave fashion
- Oversized graphic hoodie or windbreaker with color panels
- Baggy pants or cargo joggers
- Chunky sneakers with colored accents
- Streetwear meets rave energy
- Logo placements, bold graphics
- ACCESSORIES: Snapback cap or bucket hat in Colores del Sol colors`,
		},
		{
			Name: MinimalLuxury,
			PromptBlock: `**MINIMAL LUXURY**: Clean and expensive-looking
- Solid-colored premium pieces in one dominant Colores del Sol color
- Sleek silhouettes, perfect fit
- Designer aesthetic (think high-end club wear)
- Subtle color accents, no patterns
- Sophisticated and polished
- ACCESSORIES: Sleek aviator or round frame sunglasses with subtle tint`,
		},
		{
			Name: FestivalFreeSpirit,
			PromptBlock: `**FESTIVAL FREE SPIRIT**: Bohemian rave
- Patterned fabrics with Colores del Sol in tribal/geometric designs
- Layered pieces, flowing elements
- Mix of textures and prints
- Comfortable and expressive
- Artistic, creative vibe
- ACCESSORIES: Flower crown or wide-brim hat with colorful ribbons/flowers`,
		},
	}
}
