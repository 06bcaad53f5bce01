// Package fuzztests houses Go fuzz harnesses for the template pipeline
// (source -> lexer -> validators -> fix). The goal is to catch panics,
// broken span bookkeeping and fixes that damage the file on arbitrary input.
//
// Назначение: загружать байты в FileSet и прогонять их через лексер и движок.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
//
// Зависимости: internal/source, internal/lexer, internal/engine,
// internal/profile, internal/testkit.
package fuzztests
