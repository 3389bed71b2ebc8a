package language

// stopWords holds the highest-frequency function words per Latin-script
// language. A handful per language is enough: any real paragraph contains
// several of them, and the per-language sets are chosen to keep overlap
// between related languages low so the best-hit winner stays unambiguous.
var stopWords = map[string]map[string]struct{}{
	"en": wordSet("the", "and", "of", "to", "in", "is", "that", "for", "with", "was", "this", "are", "from", "have", "not"),
	"es": wordSet("el", "la", "de", "que", "y", "los", "las", "una", "por", "con", "para", "este", "esta", "pero", "como"),
	"fr": wordSet("le", "la", "les", "des", "est", "dans", "pour", "que", "qui", "avec", "sur", "une", "pas", "sont", "aux"),
	"de": wordSet("der", "die", "das", "und", "ist", "nicht", "mit", "für", "auf", "ein", "eine", "von", "dem", "den", "sich"),
	"it": wordSet("il", "la", "di", "che", "e", "per", "una", "sono", "con", "del", "della", "gli", "anche", "come", "più"),
	"pt": wordSet("o", "a", "de", "que", "e", "do", "da", "em", "um", "uma", "para", "com", "não", "os", "mais"),
	"nl": wordSet("de", "het", "een", "van", "en", "is", "dat", "op", "te", "voor", "met", "zijn", "niet", "aan", "ook"),
	"sv": wordSet("och", "att", "det", "som", "en", "är", "på", "för", "med", "av", "den", "till", "inte", "ett", "har"),
	"da": wordSet("og", "at", "det", "er", "til", "ikke", "med", "jeg", "han", "hun", "også", "hvad", "hvor", "være", "denne"),
	"no": wordSet("og", "i", "det", "at", "en", "er", "som", "på", "til", "av", "ikke", "han", "hun", "jeg", "fra"),
	"is": wordSet("og", "að", "er", "það", "sem", "til", "ekki", "við", "um", "en", "hann", "hún", "með", "var", "því"),
	"fi": wordSet("ja", "on", "ei", "että", "se", "hän", "oli", "mutta", "kuin", "myös", "niin", "kun", "ole", "sitä", "tämä"),
	"et": wordSet("ja", "on", "ei", "et", "see", "ta", "oli", "aga", "kui", "ka", "mis", "siis", "oma", "või", "nii"),
	"pl": wordSet("i", "w", "na", "z", "do", "że", "się", "jest", "nie", "to", "jak", "ale", "po", "dla", "przez"),
	"cs": wordSet("a", "se", "na", "je", "že", "to", "není", "ale", "jako", "pro", "za", "by", "co", "nebo", "tak"),
	"sk": wordSet("a", "sa", "na", "je", "že", "to", "nie", "ale", "ako", "pre", "za", "by", "čo", "alebo", "tak"),
	"hu": wordSet("és", "az", "nem", "hogy", "is", "egy", "van", "ez", "volt", "mint", "már", "csak", "meg", "vagy", "lesz"),
	"hr": wordSet("i", "u", "je", "se", "na", "da", "za", "su", "ne", "ali", "kao", "od", "što", "ili", "bio"),
	"sl": wordSet("in", "je", "se", "na", "da", "za", "so", "ne", "pa", "kot", "tudi", "ki", "bi", "ali", "bil"),
	"lt": wordSet("ir", "yra", "kad", "tai", "su", "bet", "kaip", "iš", "į", "ne", "buvo", "jis", "ji", "mes", "taip"),
	"lv": wordSet("un", "ir", "ka", "tas", "ar", "bet", "kā", "no", "uz", "ne", "bija", "viņš", "mēs", "tik", "par"),
	"ro": wordSet("și", "de", "la", "cu", "în", "este", "pentru", "care", "sau", "mai", "din", "pe", "nu", "sunt", "una"),
	"ca": wordSet("i", "el", "la", "els", "les", "que", "per", "amb", "una", "més", "com", "dels", "aquest", "però", "són"),
	"gl": wordSet("o", "a", "de", "que", "e", "non", "unha", "para", "como", "os", "do", "da", "máis", "polo", "pola"),
	"eu": wordSet("eta", "da", "ez", "bat", "du", "dira", "baina", "hau", "zen", "ere", "baita", "edo", "dela", "izan", "egin"),
	"sq": wordSet("dhe", "në", "të", "një", "me", "për", "nga", "si", "por", "ka", "është", "që", "kjo", "janë", "nuk"),
	"tr": wordSet("ve", "bir", "bu", "için", "ile", "olarak", "da", "de", "çok", "daha", "gibi", "sonra", "kadar", "ancak", "veya"),
	"az": wordSet("və", "bir", "bu", "ilə", "üçün", "ki", "olaraq", "daha", "sonra", "ancaq", "kimi", "ən", "çox", "edir", "olan"),
	"uz": wordSet("va", "bu", "bir", "uchun", "bilan", "ham", "lekin", "deb", "edi", "uning", "yoki", "kerak", "katta", "emas", "qilish"),
	"id": wordSet("yang", "dan", "di", "dengan", "untuk", "dari", "ini", "itu", "pada", "adalah", "tidak", "akan", "juga", "atau", "ke"),
	"ms": wordSet("kepada", "ialah", "boleh", "kerana", "iaitu", "bagi", "pula", "telah", "dalam", "mereka", "seperti", "anda", "oleh", "sahaja", "hanya"),
	"tl": wordSet("ang", "ng", "sa", "mga", "na", "ay", "at", "para", "ito", "hindi", "siya", "kung", "dahil", "naman", "lang"),
	"vi": wordSet("và", "là", "của", "có", "không", "được", "trong", "cho", "với", "này", "đã", "các", "một", "người", "khi"),
	"sw": wordSet("na", "ya", "wa", "kwa", "ni", "za", "katika", "kuwa", "hii", "kama", "lakini", "yake", "watu", "hata", "wake"),
	"af": wordSet("die", "en", "van", "het", "is", "nie", "dat", "om", "in", "wat", "vir", "met", "aan", "was", "sy"),
	"ga": wordSet("agus", "an", "na", "is", "ar", "go", "sé", "sí", "le", "ach", "tá", "ag", "do", "mar", "bhí"),
	"cy": wordSet("a", "yn", "y", "i", "o", "ei", "ar", "yr", "mae", "gan", "am", "fod", "wedi", "gyda", "ond"),
	"mt": wordSet("u", "il", "ta", "li", "ma", "hu", "hija", "dan", "din", "għal", "biex", "kif", "iżda", "fuq", "kien"),
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
