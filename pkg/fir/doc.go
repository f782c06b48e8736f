// Package fir выделяет номера FIR: "{код участка}/{год}/{порядковый номер}".
//
// Номер вычисляется оптимистично: количество дел участка за год + 1,
// затем проверка, что такой номер еще не занят. Между подсчетом и вставкой
// есть окно гонки: два одновременных запроса могут получить один номер.
// Повторную проверку выполняет ограничение UNIQUE на cases.fir_number при
// вставке; отклоненная вставка возвращает faults.ErrDuplicateIdentifier, и
// вызывающий повторяет выделение и вставку целиком. Allocator сам не повторяет.
package fir
