package language

import "strings"

// fieldAliases maps a field category to its language-specific key aliases.
// Lookups normalize keys (lowercase, "-" and "_" stripped), so the aliases
// are stored normalized too, with ASCII-folded spellings next to accented
// ones where sites commonly use either. English is the universal fallback:
// AliasesFor always appends it.
var fieldAliases = map[string]map[string][]string{
	"title": {
		"en": {"title", "heading", "headline"},
		"es": {"titulo", "título"},
		"fr": {"titre"},
		"de": {"titel", "überschrift"},
		"it": {"titolo"},
		"pt": {"titulo", "título"},
		"nl": {"titel"},
		"pl": {"tytuł", "tytul"},
		"cs": {"název", "nazev", "nadpis"},
		"sk": {"názov", "nazov"},
		"hu": {"cím", "cim"},
		"ro": {"titlu"},
		"hr": {"naslov"},
		"da": {"titel"},
		"no": {"tittel"},
		"sv": {"titel", "rubrik"},
		"fi": {"otsikko"},
		"ca": {"títol", "titol"},
		"ru": {"заголовок", "название"},
		"uk": {"заголовок", "назва"},
		"el": {"τίτλος"},
		"he": {"כותרת"},
		"fa": {"عنوان"},
		"ja": {"タイトル", "題名"},
		"zh": {"标题", "題目"},
		"ko": {"제목"},
		"ar": {"عنوان"},
		"hi": {"शीर्षक"},
		"th": {"หัวข้อ"},
		"vi": {"tiêuđề", "tieude"},
		"id": {"judul"},
		"ms": {"tajuk"},
		"tr": {"başlık", "baslik"},
	},
	"description": {
		"en": {"description", "desc", "about"},
		"es": {"descripcion", "descripción"},
		"fr": {"description"},
		"de": {"beschreibung"},
		"it": {"descrizione"},
		"pt": {"descricao", "descrição"},
		"nl": {"beschrijving", "omschrijving"},
		"pl": {"opis"},
		"cs": {"popis"},
		"sk": {"popis"},
		"hu": {"leírás", "leiras"},
		"ro": {"descriere"},
		"hr": {"opis"},
		"da": {"beskrivelse"},
		"no": {"beskrivelse"},
		"fi": {"kuvaus"},
		"ca": {"descripció", "descripcio"},
		"ru": {"описание"},
		"uk": {"опис"},
		"el": {"περιγραφή"},
		"he": {"תיאור"},
		"fa": {"توضیحات"},
		"ja": {"説明", "概要"},
		"zh": {"描述", "简介"},
		"ko": {"설명"},
		"ar": {"وصف"},
		"th": {"คำอธิบาย"},
		"vi": {"môtả", "mota"},
		"id": {"deskripsi"},
		"ms": {"penerangan"},
		"tr": {"açıklama", "aciklama"},
	},
	"body": {
		"en": {"body", "content", "text", "article"},
		"es": {"contenido", "cuerpo", "texto"},
		"fr": {"contenu", "corps", "texte"},
		"de": {"inhalt", "text"},
		"it": {"contenuto", "corpo", "testo"},
		"pt": {"conteudo", "conteúdo", "corpo", "texto"},
		"nl": {"inhoud", "tekst"},
		"pl": {"treść", "tresc", "zawartość"},
		"cs": {"obsah"},
		"sk": {"obsah"},
		"hu": {"tartalom"},
		"ro": {"conținut", "continut"},
		"hr": {"sadržaj", "sadrzaj"},
		"da": {"indhold"},
		"no": {"innhold"},
		"fi": {"sisältö", "sisalto"},
		"ca": {"contingut"},
		"ru": {"содержание", "текст"},
		"uk": {"зміст", "текст"},
		"el": {"περιεχόμενο"},
		"ja": {"本文", "内容"},
		"zh": {"内容", "正文"},
		"ko": {"본문", "내용"},
		"ar": {"محتوى", "نص"},
		"th": {"เนื้อหา"},
		"vi": {"nộidung", "noidung"},
		"id": {"konten", "isi"},
		"ms": {"kandungan"},
	},
	"requirements": {
		"en": {"requirements", "prerequisites", "criteria"},
		"es": {"requisitos", "requerimientos"},
		"fr": {"exigences", "conditions", "prérequis", "prerequis"},
		"de": {"anforderungen", "voraussetzungen"},
		"it": {"requisiti"},
		"pt": {"requisitos"},
		"nl": {"vereisten", "voorwaarden"},
		"pl": {"wymagania"},
		"cs": {"požadavky", "pozadavky"},
		"sk": {"požiadavky", "poziadavky"},
		"hu": {"követelmények", "kovetelmenyek"},
		"ro": {"cerințe", "cerinte"},
		"hr": {"zahtjevi"},
		"da": {"krav"},
		"no": {"krav"},
		"fi": {"vaatimukset"},
		"ca": {"requisits"},
		"ru": {"требования"},
		"uk": {"вимоги"},
		"el": {"απαιτήσεις"},
		"he": {"דרישות"},
		"fa": {"الزامات"},
		"ja": {"要件", "必要条件"},
		"zh": {"要求", "条件"},
		"ko": {"요구사항", "자격요건"},
		"ar": {"متطلبات", "شروط"},
		"th": {"ข้อกำหนด"},
		"vi": {"yêucầu", "yeucau"},
		"id": {"persyaratan"},
		"ms": {"keperluan"},
		"tr": {"gereksinimler", "şartlar", "sartlar"},
	},
	"documents": {
		"en": {"documents", "paperwork", "attachments"},
		"es": {"documentos", "documentacion", "documentación"},
		"fr": {"documents", "piècesjointes", "piecesjointes"},
		"de": {"dokumente", "unterlagen"},
		"it": {"documenti"},
		"pt": {"documentos"},
		"nl": {"documenten"},
		"pl": {"dokumenty"},
		"cs": {"dokumenty"},
		"sk": {"dokumenty"},
		"hu": {"dokumentumok"},
		"ro": {"documente"},
		"hr": {"dokumenti"},
		"da": {"dokumenter"},
		"no": {"dokumenter"},
		"fi": {"asiakirjat"},
		"ca": {"documents"},
		"ru": {"документы"},
		"uk": {"документи"},
		"el": {"έγγραφα"},
		"ja": {"書類", "必要書類"},
		"zh": {"文件", "材料"},
		"ko": {"서류"},
		"ar": {"وثائق", "مستندات"},
		"th": {"เอกสาร"},
		"vi": {"tàiliệu", "tailieu"},
		"id": {"dokumen"},
		"ms": {"dokumen"},
	},
	"fees": {
		"en": {"fees", "fee", "cost", "costs", "charges"},
		"es": {"tasas", "tarifas", "costos", "costes"},
		"fr": {"frais", "tarifs", "coût", "cout"},
		"de": {"gebühren", "gebuehren", "kosten"},
		"it": {"tasse", "costi", "tariffe"},
		"pt": {"taxas", "custos", "tarifas"},
		"nl": {"kosten", "tarieven"},
		"pl": {"opłaty", "oplaty", "koszty"},
		"cs": {"poplatky"},
		"sk": {"poplatky"},
		"hu": {"díjak", "dijak"},
		"ro": {"taxe"},
		"hr": {"naknade"},
		"da": {"gebyrer"},
		"no": {"gebyrer"},
		"fi": {"maksut"},
		"ca": {"taxes"},
		"ru": {"сборы", "плата", "стоимость"},
		"uk": {"збори", "вартість"},
		"el": {"τέλη"},
		"he": {"עמלות"},
		"ja": {"料金", "手数料", "費用"},
		"zh": {"费用", "收费"},
		"ko": {"수수료", "비용"},
		"ar": {"رسوم", "تكلفة"},
		"th": {"ค่าธรรมเนียม"},
		"vi": {"lệphí", "lephi"},
		"id": {"biaya"},
		"ms": {"yuran"},
	},
	"timeline": {
		"en": {"timeline", "schedule", "duration", "processingtime"},
		"es": {"plazos", "cronograma", "duracion", "duración"},
		"fr": {"délais", "delais", "calendrier", "durée", "duree"},
		"de": {"zeitplan", "dauer", "fristen"},
		"it": {"tempistiche", "scadenze", "durata"},
		"pt": {"prazos", "cronograma", "duracao", "duração"},
		"nl": {"tijdlijn", "doorlooptijd"},
		"pl": {"harmonogram", "terminy"},
		"cs": {"harmonogram", "lhůty", "lhuty"},
		"sk": {"harmonogram"},
		"hu": {"ütemterv", "utemterv"},
		"ro": {"termene"},
		"hr": {"rokovi"},
		"da": {"tidsplan"},
		"no": {"tidsplan"},
		"fi": {"aikataulu"},
		"ca": {"terminis"},
		"ru": {"сроки", "график"},
		"uk": {"терміни"},
		"el": {"χρονοδιάγραμμα"},
		"ja": {"期間", "スケジュール"},
		"zh": {"时间表", "期限"},
		"ko": {"일정"},
		"vi": {"thờigian", "thoigian"},
		"id": {"jadwal"},
	},
	"application": {
		"en": {"application", "apply", "submission"},
		"es": {"solicitud", "aplicacion", "aplicación"},
		"fr": {"demande", "candidature"},
		"de": {"antrag", "bewerbung"},
		"it": {"domanda", "richiesta"},
		"pt": {"solicitacao", "solicitação", "pedido"},
		"nl": {"aanvraag"},
		"pl": {"wniosek", "zgłoszenie", "zgloszenie"},
		"cs": {"žádost", "zadost"},
		"sk": {"žiadosť", "ziadost"},
		"hu": {"kérelem", "kerelem", "jelentkezés", "jelentkezes"},
		"ro": {"cerere"},
		"hr": {"zahtjev"},
		"da": {"ansøgning", "ansogning"},
		"no": {"søknad", "soknad"},
		"fi": {"hakemus"},
		"ca": {"sol·licitud", "sollicitud"},
		"ru": {"заявка", "заявление"},
		"uk": {"заявка", "заява"},
		"el": {"αίτηση"},
		"he": {"בקשה"},
		"fa": {"درخواست"},
		"ja": {"申請", "応募"},
		"zh": {"申请"},
		"ko": {"신청"},
		"ar": {"طلب"},
		"th": {"ใบสมัคร"},
		"vi": {"đơn", "don"},
		"id": {"permohonan"},
		"ms": {"permohonan"},
	},
	"status": {
		"en": {"status", "state"},
		"es": {"estado", "estatus"},
		"fr": {"statut", "état", "etat"},
		"de": {"status", "zustand"},
		"it": {"stato"},
		"pt": {"estado", "situacao", "situação"},
		"nl": {"status", "toestand"},
		"pl": {"status", "stan"},
		"cs": {"stav"},
		"sk": {"stav"},
		"hu": {"állapot", "allapot"},
		"ro": {"stare"},
		"hr": {"stanje"},
		"da": {"status"},
		"no": {"status"},
		"fi": {"tila"},
		"ca": {"estat"},
		"ru": {"статус", "состояние"},
		"uk": {"статус", "стан"},
		"el": {"κατάσταση"},
		"ja": {"状態", "ステータス"},
		"zh": {"状态"},
		"ko": {"상태"},
		"ar": {"حالة"},
		"th": {"สถานะ"},
		"vi": {"trạngthái", "trangthai"},
		"id": {"status"},
		"ms": {"status"},
	},
	"contact": {
		"en": {"contact", "contacts", "contactinfo"},
		"es": {"contacto"},
		"fr": {"contact", "coordonnées", "coordonnees"},
		"de": {"kontakt"},
		"it": {"contatto", "contatti"},
		"pt": {"contato", "contacto"},
		"nl": {"contact"},
		"pl": {"kontakt"},
		"cs": {"kontakt"},
		"sk": {"kontakt"},
		"hu": {"kapcsolat"},
		"ro": {"contact"},
		"hr": {"kontakt"},
		"da": {"kontakt"},
		"no": {"kontakt"},
		"fi": {"yhteystiedot"},
		"ca": {"contacte"},
		"ru": {"контакт", "контакты"},
		"uk": {"контакти"},
		"el": {"επικοινωνία"},
		"ja": {"連絡先", "お問い合わせ"},
		"zh": {"联系方式", "联系"},
		"ko": {"연락처"},
		"ar": {"اتصال"},
		"th": {"ติดต่อ"},
		"vi": {"liênhệ", "lienhe"},
		"id": {"kontak"},
		"ms": {"hubungi"},
	},
	"address": {
		"en": {"address", "location"},
		"es": {"direccion", "dirección", "domicilio"},
		"fr": {"adresse"},
		"de": {"adresse", "anschrift"},
		"it": {"indirizzo"},
		"pt": {"endereco", "endereço"},
		"nl": {"adres"},
		"pl": {"adres"},
		"cs": {"adresa"},
		"sk": {"adresa"},
		"hu": {"cím", "cim"},
		"ro": {"adresă", "adresa"},
		"hr": {"adresa"},
		"da": {"adresse"},
		"no": {"adresse"},
		"fi": {"osoite"},
		"ca": {"adreça", "adreca"},
		"ru": {"адрес"},
		"uk": {"адреса"},
		"el": {"διεύθυνση"},
		"ja": {"住所"},
		"zh": {"地址"},
		"ko": {"주소"},
		"ar": {"عنوان"},
		"th": {"ที่อยู่"},
		"vi": {"địachỉ", "diachi"},
		"id": {"alamat"},
		"ms": {"alamat"},
	},
	"date": {
		"en": {"date", "publishedat", "createdat"},
		"es": {"fecha"},
		"fr": {"date"},
		"de": {"datum"},
		"it": {"data"},
		"pt": {"data"},
		"nl": {"datum"},
		"pl": {"data"},
		"cs": {"datum"},
		"sk": {"dátum", "datum"},
		"hu": {"dátum", "datum"},
		"ro": {"dată", "data"},
		"hr": {"datum"},
		"da": {"dato"},
		"no": {"dato"},
		"fi": {"päivämäärä", "paivamaara"},
		"ca": {"data"},
		"ru": {"дата"},
		"uk": {"дата"},
		"el": {"ημερομηνία"},
		"ja": {"日付"},
		"zh": {"日期"},
		"ko": {"날짜"},
		"ar": {"تاريخ"},
		"th": {"วันที่"},
		"vi": {"ngày", "ngay"},
		"id": {"tanggal"},
		"ms": {"tarikh"},
	},
	"deadline": {
		"en": {"deadline", "duedate", "expiry"},
		"es": {"fechalimite", "fechalímite", "plazo"},
		"fr": {"datelimite", "échéance", "echeance"},
		"de": {"frist", "stichtag"},
		"it": {"scadenza"},
		"pt": {"prazo", "datalimite"},
		"nl": {"deadline", "uiterstedatum"},
		"pl": {"termin"},
		"cs": {"lhůta", "lhuta", "termín"},
		"sk": {"termín", "termin"},
		"hu": {"határidő", "hatarido"},
		"ro": {"termenlimită", "termenlimita"},
		"hr": {"rok"},
		"da": {"frist"},
		"no": {"frist"},
		"fi": {"määräaika", "maaraaika"},
		"ca": {"datalímit", "datalimit"},
		"ru": {"срок", "дедлайн"},
		"uk": {"термін", "дедлайн"},
		"el": {"προθεσμία"},
		"ja": {"締切", "期限"},
		"zh": {"截止日期", "期限"},
		"ko": {"마감일"},
		"vi": {"hạnchót", "hanchot"},
		"id": {"bataswaktu", "tenggat"},
		"ms": {"tarikhakhir"},
	},
	"price": {
		"en": {"price", "amount", "total"},
		"es": {"precio", "importe", "monto"},
		"fr": {"prix", "montant"},
		"de": {"preis", "betrag"},
		"it": {"prezzo", "importo"},
		"pt": {"preco", "preço", "valor"},
		"nl": {"prijs", "bedrag"},
		"pl": {"cena", "kwota"},
		"cs": {"cena"},
		"sk": {"cena"},
		"hu": {"ár"},
		"ro": {"preț", "pret"},
		"hr": {"cijena"},
		"da": {"pris"},
		"no": {"pris"},
		"fi": {"hinta"},
		"ca": {"preu"},
		"ru": {"цена", "сумма"},
		"uk": {"ціна"},
		"el": {"τιμή"},
		"he": {"מחיר"},
		"fa": {"قیمت"},
		"ja": {"価格", "金額"},
		"zh": {"价格", "金额"},
		"ko": {"가격", "금액"},
		"ar": {"سعر", "مبلغ"},
		"th": {"ราคา"},
		"vi": {"giá", "gia"},
		"id": {"harga"},
		"ms": {"harga"},
	},
	"name": {
		"en": {"name", "fullname"},
		"es": {"nombre"},
		"fr": {"nom"},
		"de": {"name"},
		"it": {"nome"},
		"pt": {"nome"},
		"nl": {"naam"},
		"pl": {"nazwa", "imię", "imie"},
		"cs": {"jméno", "jmeno"},
		"sk": {"meno"},
		"hu": {"név", "nev"},
		"ro": {"nume"},
		"hr": {"ime"},
		"da": {"navn"},
		"no": {"navn"},
		"fi": {"nimi"},
		"ca": {"nom"},
		"ru": {"имя", "название"},
		"uk": {"ім'я", "імя"},
		"el": {"όνομα"},
		"he": {"שם"},
		"fa": {"نام"},
		"ja": {"名前", "氏名"},
		"zh": {"名称", "姓名"},
		"ko": {"이름"},
		"ar": {"اسم"},
		"th": {"ชื่อ"},
		"vi": {"tên", "ten"},
		"id": {"nama"},
		"ms": {"nama"},
	},
	"author": {
		"en": {"author", "by", "writer"},
		"es": {"autor"},
		"fr": {"auteur"},
		"de": {"autor", "verfasser"},
		"it": {"autore"},
		"pt": {"autor"},
		"nl": {"auteur"},
		"pl": {"autor"},
		"cs": {"autor"},
		"sk": {"autor"},
		"hu": {"szerző", "szerzo"},
		"ro": {"autor"},
		"hr": {"autor"},
		"da": {"forfatter"},
		"no": {"forfatter"},
		"fi": {"kirjoittaja"},
		"ca": {"autor"},
		"ru": {"автор"},
		"uk": {"автор"},
		"el": {"συγγραφέας"},
		"ja": {"著者", "作者"},
		"zh": {"作者"},
		"ko": {"저자", "작성자"},
		"ar": {"مؤلف", "كاتب"},
		"th": {"ผู้เขียน"},
		"vi": {"tácgiả", "tacgia"},
		"id": {"penulis"},
		"ms": {"penulis"},
	},
	"summary": {
		"en": {"summary", "abstract", "excerpt", "overview"},
		"es": {"resumen"},
		"fr": {"résumé", "resume", "sommaire"},
		"de": {"zusammenfassung"},
		"it": {"riassunto", "sommario"},
		"pt": {"resumo"},
		"nl": {"samenvatting"},
		"pl": {"podsumowanie", "streszczenie"},
		"cs": {"shrnutí", "shrnuti"},
		"sk": {"zhrnutie"},
		"hu": {"összefoglaló", "osszefoglalo"},
		"ro": {"rezumat"},
		"hr": {"sažetak", "sazetak"},
		"da": {"resumé", "sammendrag"},
		"no": {"sammendrag"},
		"fi": {"yhteenveto"},
		"ca": {"resum"},
		"ru": {"резюме", "краткоесодержание"},
		"uk": {"резюме"},
		"el": {"περίληψη"},
		"ja": {"要約", "概要"},
		"zh": {"摘要", "概述"},
		"ko": {"요약"},
		"ar": {"ملخص"},
		"th": {"สรุป"},
		"vi": {"tómtắt", "tomtat"},
		"id": {"ringkasan"},
		"ms": {"ringkasan"},
	},
}

// NormalizeKey lowercases and strips "-" and "_" so key comparison works
// across naming conventions.
func NormalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "-", "")
	key = strings.ReplaceAll(key, "_", "")
	return key
}

// AliasesFor returns the alias list for a category in the given language,
// with the English aliases always appended as fallback.
func AliasesFor(category, lang string) []string {
	perLanguage, ok := fieldAliases[category]
	if !ok {
		return nil
	}
	var aliases []string
	if lang != "en" {
		aliases = append(aliases, perLanguage[lang]...)
	}
	aliases = append(aliases, perLanguage["en"]...)
	return aliases
}

// Categories lists the known field categories
func Categories() []string {
	categories := make([]string, 0, len(fieldAliases))
	for category := range fieldAliases {
		categories = append(categories, category)
	}
	return categories
}

// isKnownLanguage reports whether code appears anywhere in the alias or
// stop-word tables, which together cover every language detection can emit.
func isKnownLanguage(code string) bool {
	if _, ok := stopWords[code]; ok {
		return true
	}
	for _, perLanguage := range fieldAliases {
		if _, ok := perLanguage[code]; ok {
			return true
		}
	}
	for _, sr := range scriptRanges {
		if sr.lang == code {
			return true
		}
	}
	return false
}
