package prompt

import "unicode"

// ChunkText 将长文本按 Token 预算切分为带重叠的片段
// 重叠让相邻片段共享上下文；切分点回退到空白字符，不截断单词。
// Token 换算按 4 字符 ≈ 1 Token
func ChunkText(text string, chunkSizeTokens, overlapTokens int) []string {
	if text == "" || chunkSizeTokens <= 0 {
		return nil
	}

	chunkSizeChars := chunkSizeTokens * 4
	overlapChars := overlapTokens * 4

	chars := []rune(text)
	totalChars := len(chars)

	if totalChars <= chunkSizeChars {
		return []string{text}
	}

	// 步长是窗口中不重叠的部分
	step := chunkSizeChars - overlapChars
	if step < 1 {
		step = 1
	}

	var chunks []string
	currentPos := 0

	for currentPos < totalChars {
		endPos := currentPos + chunkSizeChars
		if endPos > totalChars {
			endPos = totalChars
		}

		// 向前回退到空白，避免截断单词
		if endPos < totalChars {
			boundary := endPos
			for boundary > currentPos && !unicode.IsSpace(chars[boundary]) {
				boundary--
			}
			if boundary > currentPos {
				endPos = boundary
			}
		}

		chunks = append(chunks, string(chars[currentPos:endPos]))

		if endPos == totalChars {
			break
		}

		currentPos += step
	}

	return chunks
}
