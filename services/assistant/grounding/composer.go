// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package grounding turns a dispatch result into the context block that
// constrains the final streamed answer. The block is injected as the
// last system message of the second model call, so it supersedes the
// persona prompt for factual content.
package grounding

import (
	"fmt"
	"strings"

	"github.com/telawat/assistant/services/assistant/intent"
	"github.com/telawat/assistant/services/assistant/retrieval"
	"github.com/telawat/assistant/services/orchestrator/datatypes"
)

// unavailable is the canonical rendering for absent catalog fields. The
// model is told to use it verbatim instead of guessing.
const unavailable = "غير متوفر"

// Context is a composed grounding block: the retrieved facts and the
// behavioral instructions that bind the answer to them.
type Context struct {
	Facts        string
	Instructions string
}

// Message renders the context as a system turn for the streaming call.
func (c Context) Message() datatypes.Message {
	var b strings.Builder
	b.WriteString("نتائج البحث في الموقع:\n")
	b.WriteString(c.Facts)
	b.WriteString("\n\n")
	b.WriteString(c.Instructions)
	return datatypes.Message{Role: datatypes.RoleSystem, Content: b.String()}
}

// baseInstructions apply to every grounded answer regardless of outcome.
const baseInstructions = "أجب بالاعتماد على النتائج أعلاه فقط. " +
	"لا تذكر أي قارئ أو تلاوة أو معلومة غير واردة فيها، ولا تعتمد على معرفتك العامة. " +
	"استخدم الروابط كما وردت دون تغيير. " +
	"أجب على سؤال المستخدم فقط دون سرد معلومات لم يطلبها."

// Compose builds the grounding context for one dispatch result.
//
// Description:
//
//	Branches on the result's classification and action kind. Every
//	entity is rendered with its canonical link (/reciters/{id} or
//	/recordings/{id}) and every absent field as the explicit
//	"unavailable" marker, so the model has nothing to invent.
func Compose(res retrieval.Result) Context {
	switch res.Classification {
	case retrieval.ClassEmpty:
		return composeEmpty(res)
	case retrieval.ClassMultiple:
		return composeMultiple(res)
	default:
		return composeSingle(res)
	}
}

func composeEmpty(res retrieval.Result) Context {
	facts := "لا توجد نتائج مطابقة في الموقع."
	if res.Partial {
		facts = "تعذر الوصول إلى فهرس الموقع حاليا."
	}
	return Context{
		Facts: facts,
		Instructions: "أخبر المستخدم بوضوح أن المطلوب غير موجود في الموقع. " +
			"لا تخمن ولا تقترح أسماء أو تلاوات من عندك. " +
			baseInstructions,
	}
}

func composeMultiple(res retrieval.Result) Context {
	var b strings.Builder
	if len(res.Reciters) > 0 {
		b.WriteString("القراء المطابقون:\n")
		for _, r := range res.Reciters {
			fmt.Fprintf(&b, "- %s (/reciters/%d)\n", r.Name, r.ID)
		}
		instructions := "اعرض الأسماء على المستخدم واطلب منه تحديد القارئ المقصود. " + baseInstructions
		if res.Action.Kind == intent.ActionListReciters {
			instructions = "اعرض قائمة القراء المتاحين في الموقع. " + baseInstructions
		}
		return Context{Facts: strings.TrimRight(b.String(), "\n"), Instructions: instructions}
	}

	b.WriteString("التلاوات:\n")
	writeRecordings(&b, res.Recordings)
	return Context{
		Facts:        strings.TrimRight(b.String(), "\n"),
		Instructions: "اعرض التلاوات المتاحة مع روابطها. " + baseInstructions,
	}
}

func composeSingle(res retrieval.Result) Context {
	var b strings.Builder

	if res.Reciter == nil {
		if res.SurahNumber > 0 {
			return composeVerseOrSurah(res)
		}
		return composeEmpty(res)
	}

	r := res.Reciter
	fmt.Fprintf(&b, "القارئ: %s (/reciters/%d)\n", r.Name, r.ID)
	fmt.Fprintf(&b, "تاريخ الميلاد: %s\n", orUnavailable(r.BirthDate))
	fmt.Fprintf(&b, "تاريخ الوفاة: %s\n", orUnavailable(r.DeathDate))
	fmt.Fprintf(&b, "نبذة: %s\n", orUnavailable(r.Bio))
	fmt.Fprintf(&b, "عدد التلاوات: %d\n", r.RecordingCount)
	if len(res.Recordings) > 0 {
		b.WriteString("التلاوات:\n")
		writeRecordings(&b, res.Recordings)
	}

	return Context{
		Facts: strings.TrimRight(b.String(), "\n"),
		Instructions: "إذا كان أي حقل \"" + unavailable + "\" فاذكر ذلك صراحة ولا تخمن بديلا. " +
			"لا تسرد التلاوات إلا إذا طلب المستخدم الاستماع أو التلاوات نفسها. " +
			baseInstructions,
	}
}

func composeVerseOrSurah(res retrieval.Result) Context {
	var b strings.Builder
	if res.AyahNumber > 0 {
		fmt.Fprintf(&b, "الآية المطلوبة: سورة %s، الآية %d\n", res.SurahName, res.AyahNumber)
	} else {
		fmt.Fprintf(&b, "السورة المطلوبة: سورة %s\n", res.SurahName)
	}
	switch {
	case len(res.Recordings) > 0:
		b.WriteString("التلاوات المتاحة:\n")
		writeRecordings(&b, res.Recordings)
	case res.Partial:
		// A failed recordings fetch is not an empty catalog.
		b.WriteString("تعذر الوصول إلى فهرس التلاوات حاليا.\n")
	default:
		b.WriteString("لا توجد تلاوات متاحة لها في الموقع.\n")
	}

	instructions := "اذكر أولا السورة ورقم الآية اللذين تم التعرف عليهما، ثم اعرض التلاوات المتاحة. "
	if res.AyahNumber == 0 {
		instructions = "اعرض تلاوات السورة المتاحة مع روابطها. "
	}
	if res.Partial && len(res.Recordings) == 0 {
		instructions += "أخبر المستخدم أن حدث خلل مؤقت في جلب التلاوات وأن بإمكانه المحاولة لاحقا. "
	}
	if res.HintMissed {
		if len(res.Recordings) > 0 {
			instructions += "وضح أن القارئ الذي طلبه المستخدم لا توجد له تلاوة لهذه الآية في الموقع، واعرض البدائل المتاحة. "
		} else {
			instructions += "وضح أن القارئ الذي طلبه المستخدم لا توجد له تلاوة لهذه الآية في الموقع. "
		}
	}
	return Context{
		Facts:        strings.TrimRight(b.String(), "\n"),
		Instructions: instructions + baseInstructions,
	}
}

func writeRecordings(b *strings.Builder, recs []retrieval.Recording) {
	for _, r := range recs {
		title := retrieval.DisplayTitle(r)
		if r.ReciterName != "" {
			fmt.Fprintf(b, "- %s للقارئ %s (/recordings/%d)\n", title, r.ReciterName, r.ID)
		} else {
			fmt.Fprintf(b, "- %s (/recordings/%d)\n", title, r.ID)
		}
	}
}

func orUnavailable(s string) string {
	if s == "" {
		return unavailable
	}
	return s
}
