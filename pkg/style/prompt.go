package style

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/alantheprice/dialoguegen/pkg/dialogue"
)

var bulletFuncs = template.FuncMap{"bullets": bullets}

var englishTemplate = template.Must(template.New("style_en").Funcs(bulletFuncs).Parse(`As a professional dialogue stylist AI, rewrite the original dialogue according to the character traits below while keeping its plot points and intentions. Keep the output in English.

## Original Dialogue Information
Original dialogue text:
{{.RawText}}

Key points:
{{bullets .KeyPoints}}

Dialogue intentions:
{{bullets .Intentions}}

Key vocabulary (must be preserved):
{{bullets .KeyVocabulary}}

Key sentence structures (must be preserved):
{{bullets .KeySentences}}

## Character Traits
# User Character Details
{{.UserDescription}}
# AI Character Details
{{.AIDescription}}
Please follow these requirements:
1. Maintain all key points and intentions from the original dialogue
2. Include ALL key vocabulary and sentence structures from the original dialogue
3. Adjust the dialogue style, tone and descriptions according to the character traits
4. Keep the dialogue format with clear speaker distinctions
5. {{.EmotionInstruction}}
6. Keep the output in the SAME LANGUAGE as the original dialogue (English)
7. Only return the rewritten dialogue text without additional explanations
`))

var chineseTemplate = template.Must(template.New("style_zh").Funcs(bulletFuncs).Parse(`作为一个专业的对话风格改编 AI，你的任务是将原始对话根据给定的角色特质进行改编，同时保持原始对话的情节和意图不变。

## 原始对话信息
对话原文：
{{.RawText}}

关键节点：
{{bullets .KeyPoints}}

对话意图：
{{bullets .Intentions}}

关键词汇（必须保留）：
{{bullets .KeyVocabulary}}

关键句型（必须保留）：
{{bullets .KeySentences}}

## 角色特质
# 用户角色详情
{{.UserDescription}}
# AI角色详情
{{.AIDescription}}
请按照以下要求进行改编：
1. 保持原始对话的全部关键节点和意图
2. 包含原始对话中的所有关键词汇和句型
3. 根据用户和 AI 的角色特质调整对话风格、语调和描述方式
4. 保持对话的格式，包括清晰的说话人区分
5. {{.EmotionInstruction}}
6. 重要提示：请保持输出语言与原始对话相同（中文）
7. 请只返回改编后的对话文本，不需要额外的解释
`))

type promptLabels struct {
	userCharacter, userAddress, userCustom, userSummary string
	aiCharacter, aiCatchphrase, aiTone, aiSummary       string
	emotions, emotionsAuto                              string
	emotionAuto, emotionCustom, emotionDefault          string
}

var labels = map[string]promptLabels{
	English: {
		userCharacter:  "Personality",
		userAddress:    "How others address the user",
		userCustom:     "Other traits",
		userSummary:    "User character traits",
		aiCharacter:    "Personality",
		aiCatchphrase:  "Catchphrase",
		aiTone:         "Tone",
		aiSummary:      "AI character traits",
		emotions:       "Actions/expressions",
		emotionsAuto:   "generated automatically (choose actions and expressions that fit the AI's personality and each line)",
		emotionAuto:    "IMPORTANT: For each line spoken by the AI character, automatically generate and include appropriate emotional expressions and physical actions based on the AI's personality and the content of the line",
		emotionCustom:  "IMPORTANT: For each line spoken by the AI character, include emotional expressions and physical actions from this list: %s",
		emotionDefault: "Include appropriate emotional expressions and physical actions for the AI character when needed",
	},
	Chinese: {
		userCharacter:  "性格特质",
		userAddress:    "他人称呼方式",
		userCustom:     "其他特质",
		userSummary:    "用户角色特质",
		aiCharacter:    "性格特质",
		aiCatchphrase:  "口头禅",
		aiTone:         "语气",
		aiSummary:      "AI角色特质",
		emotions:       "动作/表情描述",
		emotionsAuto:   "自动生成（请根据AI性格和句子内容自动选择合适的动作和表情）",
		emotionAuto:    "重要提示：对于AI的每一句话，根据AI的性格特点和话语内容，自动生成并添加合适的情感表达和肢体动作描述",
		emotionCustom:  "重要提示：对于AI的每一句话，从以下列表中选择并添加情感表达和肢体动作描述：%s",
		emotionDefault: "在需要时为AI角色添加适当的情感表达和肢体动作描述",
	},
}

type promptData struct {
	*dialogue.StructuredDialogue
	UserDescription    string
	AIDescription      string
	EmotionInstruction string
}

// BuildPrompt renders the style prompt for lang (English or Chinese)
func BuildPrompt(d *dialogue.StructuredDialogue, traits TraitSpec, lang string) (string, error) {
	l, ok := labels[lang]
	if !ok {
		return "", fmt.Errorf("no style template for language %q", lang)
	}
	t := englishTemplate
	if lang == Chinese {
		t = chineseTemplate
	}

	data := promptData{
		StructuredDialogue: d,
		UserDescription:    describeUser(traits.User, l),
		AIDescription:      describeAI(traits.AI, l),
		EmotionInstruction: emotionInstruction(traits.AI, l),
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render style prompt: %w", err)
	}
	return sb.String(), nil
}

// describeUser prefers the structured fields and falls back to Summary
func describeUser(u UserTraits, l promptLabels) string {
	var sb strings.Builder
	if u.structured() {
		line(&sb, l.userCharacter, u.Character)
		line(&sb, l.userAddress, u.Address)
		line(&sb, l.userCustom, u.Custom)
	} else {
		line(&sb, l.userSummary, u.Summary)
	}
	return sb.String()
}

func describeAI(a AITraits, l promptLabels) string {
	var sb strings.Builder
	if !a.structured() {
		line(&sb, l.aiSummary, a.Summary)
		return sb.String()
	}
	line(&sb, l.aiCharacter, a.Character)
	line(&sb, l.aiCatchphrase, a.Catchphrase)
	line(&sb, l.aiTone, a.Tone)
	switch {
	case a.customEmotions():
		line(&sb, l.emotions, a.Emotions)
	case a.mode() == EmotionAuto:
		line(&sb, l.emotions, l.emotionsAuto)
	}
	return sb.String()
}

func emotionInstruction(a AITraits, l promptLabels) string {
	switch {
	case a.mode() == EmotionAuto:
		return l.emotionAuto
	case a.customEmotions():
		return fmt.Sprintf(l.emotionCustom, strings.TrimSpace(a.Emotions))
	default:
		return l.emotionDefault
	}
}

func line(sb *strings.Builder, label, value string) {
	if v := strings.TrimSpace(value); v != "" {
		fmt.Fprintf(sb, "%s: %s\n", label, v)
	}
}

func bullets(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}
