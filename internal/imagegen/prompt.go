package imagegen

import (
	"strings"

	"github.com/JuampiHernandez/raave-outfit/internal/style"
)

// Palette is the "Colores del Sol" colour set every outfit draws from.
var Palette = []string{
	"Red (#FF4444)",
	"Orange (#FF8C00)",
	"Yellow (#FFD700)",
	"Purple (#9B59B6)",
}

// BuildEditPrompt returns the outfit-editing instruction for s. The
// preservation block comes first so the model treats the task as an edit,
// not a fresh generation.
func BuildEditPrompt(s style.Descriptor) string {
	lines := []string{
		"CRITICAL INSTRUCTION: This is an OUTFIT EDITING task, NOT image generation. You must preserve EVERYTHING about the original image except the clothing.",
		"",
		"🎯 EXACT PRESERVATION REQUIREMENTS (MUST FOLLOW):",
		"1. Keep the EXACT same face, facial features, skin tone, hair, and expression",
		"2. Keep the EXACT same background, setting, and environment",
		"3. Keep the EXACT same pose, body position, and framing",
		"4. Keep the EXACT same lighting, shadows, and photo quality",
		"5. ONLY modify the clothing/outfit - absolutely nothing else",
		"",
		"The person in the edited photo must look IDENTICAL to the original, just wearing different clothes.",
		"",
		"---",
		"",
		"🎨 RAVE OUTFIT ASSIGNMENT:",
		`Transform ONLY the clothing into a rave outfit for RAAVE Buenos Aires using "Colores del Sol" theme.`,
		"Colors to use: " + strings.Join(Palette, ", "),
		"",
		"YOUR ASSIGNED STYLE FOR THIS USER:",
		s.PromptBlock,
		"",
		"🎭 DESIGN RULES:",
		"- Use realistic, wearable rave fashion (not costumes)",
		"- Incorporate Colores del Sol colors naturally into the outfit",
		"- Match the style to the person's vibe",
		"- Ensure proper fabric textures, folds, and shadows",
		"- Make it look like they're dressed for a real rave in Buenos Aires",
		"- The edit should look professional and seamless",
		"- IMPORTANT: Include the specified accessories (sunglasses, hats, headbands, etc.) as part of the outfit",
		"- Accessories should match the overall style and color scheme",
		"",
		"⚠️ REMINDER: The result must look like the SAME PERSON wearing different clothes and accessories. Face, facial features, background, pose - ALL must remain IDENTICAL. Only clothing and accessories change.",
	}
	return strings.Join(lines, "\n")
}
