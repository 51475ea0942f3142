package shops

// GenreNames maps the Hotpepper gourmet category codes to their labels.
var GenreNames = map[string]string{
	"G001": "居酒屋",
	"G002": "ダイニングバー・バル",
	"G003": "創作料理",
	"G004": "和食",
	"G005": "洋食",
	"G006": "イタリアン・フレンチ",
	"G007": "中華",
	"G008": "焼肉・ホルモン",
	"G009": "アジア・エスニック料理",
	"G010": "各国料理",
	"G011": "カラオケ・パーティ",
	"G012": "バー・カクテル",
	"G013": "ラーメン",
	"G014": "カフェ・スイーツ",
	"G015": "その他グルメ",
	"G016": "お好み焼き・もんじゃ",
	"G017": "韓国料理",
}

// ValidGenre reports whether code is a known category code.
func ValidGenre(code string) bool {
	_, ok := GenreNames[code]
	return ok
}
