// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import (
	"strings"

	"github.com/telawat/assistant/services/assistant/arabic"
)

// surahNames holds the canonical display names of the 114 chapters,
// indexed by chapter number minus one.
var surahNames = [114]string{
	"الفاتحة", "البقرة", "آل عمران", "النساء", "المائدة",
	"الأنعام", "الأعراف", "الأنفال", "التوبة", "يونس",
	"هود", "يوسف", "الرعد", "إبراهيم", "الحجر",
	"النحل", "الإسراء", "الكهف", "مريم", "طه",
	"الأنبياء", "الحج", "المؤمنون", "النور", "الفرقان",
	"الشعراء", "النمل", "القصص", "العنكبوت", "الروم",
	"لقمان", "السجدة", "الأحزاب", "سبأ", "فاطر",
	"يس", "الصافات", "ص", "الزمر", "غافر",
	"فصلت", "الشورى", "الزخرف", "الدخان", "الجاثية",
	"الأحقاف", "محمد", "الفتح", "الحجرات", "ق",
	"الذاريات", "الطور", "النجم", "القمر", "الرحمن",
	"الواقعة", "الحديد", "المجادلة", "الحشر", "الممتحنة",
	"الصف", "الجمعة", "المنافقون", "التغابن", "الطلاق",
	"التحريم", "الملك", "القلم", "الحاقة", "المعارج",
	"نوح", "الجن", "المزمل", "المدثر", "القيامة",
	"الإنسان", "المرسلات", "النبأ", "النازعات", "عبس",
	"التكوير", "الانفطار", "المطففين", "الانشقاق", "البروج",
	"الطارق", "الأعلى", "الغاشية", "الفجر", "البلد",
	"الشمس", "الليل", "الضحى", "الشرح", "التين",
	"العلق", "القدر", "البينة", "الزلزلة", "العاديات",
	"القارعة", "التكاثر", "العصر", "الهمزة", "الفيل",
	"قريش", "الماعون", "الكوثر", "الكافرون", "النصر",
	"المسد", "الإخلاص", "الفلق", "الناس",
}

// surahKeys is the lookup form of each name: normalized, article
// stripped per token, built once at init.
var surahKeys [114]string

func init() {
	for i, name := range surahNames {
		toks := strings.Fields(arabic.Normalize(name))
		for j, t := range toks {
			toks[j] = arabic.StripArticle(t)
		}
		surahKeys[i] = strings.Join(toks, " ")
	}
}

// SurahName returns the canonical display name for a chapter number.
func SurahName(n int) (string, bool) {
	if n < 1 || n > len(surahNames) {
		return "", false
	}
	return surahNames[n-1], true
}

// ResolveSurah maps a free-text chapter query to a chapter number and
// its canonical name.
//
// Description:
//
//	The query goes through the same normalization as catalog text, then
//	matching is exact-key first, substring second (either direction), in
//	ascending chapter order so ties resolve deterministically. Returns
//	ok=false when nothing matches.
func ResolveSurah(query string) (int, string, bool) {
	toks := arabic.QueryTokens(query)
	if len(toks) == 0 {
		return 0, "", false
	}
	key := strings.Join(toks, " ")

	for i, k := range surahKeys {
		if k == key {
			return i + 1, surahNames[i], true
		}
	}
	for i, k := range surahKeys {
		if strings.Contains(k, key) {
			return i + 1, surahNames[i], true
		}
		// Query containing the name only counts for names long enough
		// not to match by accident (e.g. the single-letter chapters).
		if len([]rune(k)) >= 3 && strings.Contains(key, k) {
			return i + 1, surahNames[i], true
		}
	}
	return 0, "", false
}
