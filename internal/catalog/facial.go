package catalog

// FacialName is the registry name of the built-in facial landmark set.
const FacialName = "facial"

// Facial returns the standard facial soft-tissue landmark set for cleft lip and nose
// photographs, ordered top to bottom, left before right.
func Facial() *Catalog {
	return MustNew(FacialName, facialPoints)
}

var facialPoints = []string{
	// Forehead and brows
	"发际中点",
	"额点",
	"左眉点",

	// Left eye
	"左眼外眦",
	"左眼睑最高点",
	"左眼内眦",
	"左瞳孔中点",
	"左眼睑最低点",

	// Right eye
	"右眉点",
	"右眼外眦",
	"右眼睑最高点",
	"右眼内眦",
	"右瞳孔中点",
	"右眼睑最低点",

	// Ears
	"左耳屏点（外耳道点）",
	"右耳屏点（外耳道点）",

	// Nasal midline and columella base
	"鼻根点",
	"鼻顶点",
	"鼻小柱基部中点",
	"鼻小柱基部左侧点",
	"鼻小柱基部右侧点",

	// Alar grooves
	"左鼻翼沟顶点",
	"左鼻翼沟中点",
	"左鼻翼沟底点",
	"鼻左外侧点",
	"左鼻翼基角转折点",
	"右鼻翼沟顶点",
	"右鼻翼沟中点",
	"右鼻翼沟底点",
	"鼻右外侧点",
	"右鼻翼基角转折点",

	// Left ala
	"鼻小柱左侧顶点",
	"左鼻翼上缘顶点（中点）",
	"左鼻翼上缘转折点",
	"左鼻翼下缘点",
	"左鼻翼基角外侧点",
	"左鼻翼基角中点",

	// Right ala
	"鼻小柱右侧顶点",
	"右鼻翼上缘顶点（中点）",
	"右鼻翼上缘转折点",
	"右鼻翼下缘点",
	"右鼻翼基角外侧点",
	"右鼻翼基角中点",

	// Lips
	"左口角",
	"左上唇中点",
	"左侧唇顶点",
	"上唇点",
	"右侧唇顶点",
	"右上唇中点",
	"右口角",
	"下唇点",

	// Chin
	"颏唇沟点",
	"颏前点",
	"颏下点",
}
