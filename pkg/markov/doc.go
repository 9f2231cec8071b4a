/*
Package markov provides a small, dependency-free toolkit for learning a bigram
(order-one Markov chain) model of word adjacency from plain text, and for
generating novel word sequences from it.

Training and generation are split across two model types. A Trainer owns a
mutable TrainingModel and feeds it tokenized text; calling Freeze turns what
has been learned into an immutable FrozenModel. Only FrozenModel can be
handed to a Generator, and any number of goroutines may generate from the same
FrozenModel at once.

Generation is a weighted random walk: each next token is drawn with
probability proportional to how often it followed the current token in the
training text. The random source is injectable, so output is reproducible
for a fixed seed.
*/
package markov
