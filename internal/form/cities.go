package form

// sriLankaCities are the city names accepted without coordinates, grouped
// by province.
var sriLankaCities = []string{
	// Western
	"colombo", "dehiwala", "mount lavinia", "moratuwa", "kesbewa", "maharagama", "kotte", "kaduwela",
	"homagama", "pannipitiya", "padukka", "battaramulla", "ragama", "ja-ela", "negombo", "katunayake",
	"seeduwa", "wattala", "kelaniya", "kiribathgoda", "pitipana",
	// Central
	"kandy", "gampola", "nawalapitiya", "katugastota", "peradeniya", "matale", "dambulla",
	"nuwara eliya", "hatton", "talawakele", "bandarawela", "haputale",
	// Southern
	"galle", "matara", "weligama", "hambantota", "tangalle", "ambalangoda", "hikkaduwa", "hakmana",
	"tissamaharama",
	// Northern
	"jaffna", "kachchativu", "mannar", "kilinochchi", "vavuniya", "point pedro", "chavakachcheri",
	"mulaitivu",
	// Eastern
	"trincomalee", "batticaloa", "kalmunai", "ampara", "kattankudy", "eravur", "valachchenai",
	"kalkudah", "sainthamaruthu",
	// North Western
	"kurunegala", "kuliyapitiya", "narammala", "pannala", "puttalam", "chilaw", "wennappuwa",
	"anamaduwa", "maho",
	// North Central
	"anuradhapura", "polonnaruwa", "hingurakgoda", "medirigiriya",
	// Uva
	"badulla", "monaragala", "bibile", "welimada",
	// Sabaragamuwa
	"ratnapura", "balangoda", "kegalle", "mawanella",
}
